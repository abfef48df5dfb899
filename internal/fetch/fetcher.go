// Package fetch performs the single resilient HTTP GET each ingestion run
// issues against the audit API. Transient failures are retried with linear
// backoff; client certificate material supplied as raw PEM content lives on
// disk only for the duration of one call.
package fetch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// BasicAuth carries optional HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

// ClientCert carries mutual-TLS material: either file paths or raw PEM
// content. Paths take precedence when both are set.
type ClientCert struct {
	CertPath string
	KeyPath  string
	CertPEM  string
	KeyPEM   string
}

// Request describes one logical GET against the audit API.
type Request struct {
	InputName string
	URL       string
	Query     url.Values
	Headers   map[string]string
	Auth      *BasicAuth
	ProxyURL  string // http(s):// or socks5://, empty for direct
	Cert      *ClientCert
	VerifyTLS bool
}

// Fetcher issues GET requests with bounded retry. The zero value is not
// usable; use NewFetcher.
type Fetcher struct {
	maxRetries  int
	backoffBase time.Duration
	timeout     time.Duration
	sleep       func(time.Duration) // test seam
}

// Option tweaks Fetcher behavior.
type Option func(*Fetcher)

// WithMaxRetries sets the total number of attempts (default 3).
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoffBase sets the linear backoff base (default 2s). The sleep
// before attempt n+1 is base * n.
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) { f.backoffBase = d }
}

// WithTimeout sets the per-attempt HTTP timeout (default 60s).
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// NewFetcher returns a Fetcher with the default retry policy.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		maxRetries:  3,
		backoffBase: 2 * time.Second,
		timeout:     60 * time.Second,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs the GET described by req and decodes the response body as
// JSON. Connection errors and non-2xx statuses share one retry budget; after
// maxRetries attempts the last failure is returned as *TransientError. A 2xx
// body that is not valid JSON is a *MalformedResponseError and is not
// retried. Ephemeral certificate files are removed on every exit path.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (any, error) {
	certs, err := materializeCert(req.Cert, req.InputName)
	if err != nil {
		return nil, err
	}
	defer certs.release()

	client, err := f.buildClient(req, certs)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		body, err := f.doOnce(ctx, client, req)
		if err == nil {
			var payload any
			if jerr := json.Unmarshal(body, &payload); jerr != nil {
				return nil, &MalformedResponseError{Cause: jerr}
			}
			return payload, nil
		}

		lastErr = err
		log.Printf("[fetch] GET %s failed (attempt %d/%d): %v", req.URL, attempt, f.maxRetries, err)
		if attempt < f.maxRetries {
			f.sleep(f.backoffBase * time.Duration(attempt))
		}
	}

	return nil, &TransientError{Attempts: f.maxRetries, Cause: lastErr}
}

func (f *Fetcher) doOnce(ctx context.Context, client *http.Client, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	// keep any query params embedded in the configured URL; per-run params
	// win on collision
	q := httpReq.URL.Query()
	for k, vs := range req.Query {
		q[k] = vs
	}
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Auth != nil {
		httpReq.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

// buildClient assembles an http.Client for this request: proxy, TLS
// verification toggle, and optional client certificate.
func (f *Fetcher) buildClient(req Request, certs *certFiles) (*http.Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	if req.ProxyURL != "" {
		proxyURL, err := url.Parse(req.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	tlsCfg := &tls.Config{InsecureSkipVerify: !req.VerifyTLS}
	if certs != nil {
		cert, err := tls.LoadX509KeyPair(certs.certPath, certs.keyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	transport.TLSClientConfig = tlsCfg

	return &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// MergeQuery builds the request query from the window bounds plus
// caller-supplied extras. Extras win on key collision.
func MergeQuery(startMS, endMS int64, extras map[string]string) url.Values {
	q := url.Values{}
	q.Set("startTime", fmt.Sprintf("%d", startMS))
	q.Set("endTime", fmt.Sprintf("%d", endMS))
	q.Set("expand", "true")
	for k, v := range extras {
		q.Set(k, v)
	}
	return q
}
