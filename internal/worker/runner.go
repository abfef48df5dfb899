package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/badrinath-dash/apigee-audit-connector/internal/config"
	"github.com/badrinath-dash/apigee-audit-connector/internal/credentials"
	"github.com/badrinath-dash/apigee-audit-connector/internal/fetch"
	"github.com/badrinath-dash/apigee-audit-connector/internal/metrics"
	"github.com/badrinath-dash/apigee-audit-connector/internal/pipeline"
	"github.com/badrinath-dash/apigee-audit-connector/internal/sink"
	"github.com/badrinath-dash/apigee-audit-connector/internal/window"
)

// Runner assembles and executes one ingestion pipeline per configured input.
type Runner struct {
	cfg         *config.Config
	creds       credentials.Provider
	fetcher     *fetch.Fetcher
	checkpoints pipeline.CheckpointStore
	runHistory  pipeline.RunRecorder
	events      sink.Sink
	metrics     *metrics.Publisher
}

// NewRunner wires a Runner from configuration and AWS clients.
func NewRunner(cfg *config.Config, creds credentials.Provider, checkpoints pipeline.CheckpointStore, runHistory pipeline.RunRecorder, events sink.Sink, m *metrics.Publisher) *Runner {
	return &Runner{
		cfg:         cfg,
		creds:       creds,
		fetcher:     fetch.NewFetcher(),
		checkpoints: checkpoints,
		runHistory:  runHistory,
		events:      events,
		metrics:     m,
	}
}

// RunAll executes every enabled input concurrently. Each input has its own
// checkpoint key and certificate scratch space, so runs never share state.
// Per-input failures are logged; RunAll itself only reports.
func (r *Runner) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range r.cfg.Inputs {
		in := &r.cfg.Inputs[i]
		if in.Disabled {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.RunInput(ctx, in); err != nil {
				log.Printf("[worker] input=%s run failed: %v", in.Name, err)
			}
		}()
	}
	wg.Wait()
}

// RunInput executes one pipeline run for one input.
func (r *Runner) RunInput(ctx context.Context, in *config.Input) (pipeline.Summary, error) {
	acct, err := r.creds.Account(in.Account)
	if err != nil {
		return pipeline.Summary{}, err
	}
	proxy, err := r.creds.ProxySettings()
	if err != nil {
		return pipeline.Summary{}, err
	}
	extras, err := in.ExtraParams()
	if err != nil {
		// validated at load time; a failure here means the config changed
		return pipeline.Summary{}, err
	}

	fetchFn := func(ctx context.Context, w window.Window) (any, error) {
		req := fetch.Request{
			InputName: in.Name,
			URL:       in.APIURL,
			Query:     fetch.MergeQuery(w.StartMS, w.EndMS, extras),
			ProxyURL:  proxy.URL(),
			VerifyTLS: in.VerifyTLS(),
		}
		if acct.Username != "" {
			req.Auth = &fetch.BasicAuth{Username: acct.Username, Password: acct.Password}
		}
		if acct.CertPath != "" || acct.CertPEM != "" {
			req.Cert = &fetch.ClientCert{
				CertPath: acct.CertPath,
				KeyPath:  acct.KeyPath,
				CertPEM:  acct.CertPEM,
				KeyPEM:   acct.KeyPEM,
			}
		}
		return r.fetcher.Fetch(ctx, req)
	}

	p := &pipeline.Pipeline{
		InputName:       in.Name,
		ConfiguredStart: in.StartFrom,
		LookbackDays:    in.LookbackDays,
		FieldPaths:      in.FieldPaths(),
		Index:           in.Index,
		Sourcetype:      in.SourcetypeOrDefault(),
		Fetch:           fetchFn,
		Sink:            r.events,
		Checkpoints:     r.checkpoints,
		Runs:            r.runHistory,
		Metrics:         r.metrics,
		RunID:           uuid.NewString(),
	}
	return p.Run(ctx)
}

// RunLoop runs each enabled input on its configured interval until ctx is
// canceled. Used in local mode; in Lambda the host scheduler drives RunAll.
func (r *Runner) RunLoop(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range r.cfg.Inputs {
		in := &r.cfg.Inputs[i]
		if in.Disabled {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(time.Duration(in.IntervalSeconds) * time.Second)
			defer ticker.Stop()
			for {
				if _, err := r.RunInput(ctx, in); err != nil {
					log.Printf("[worker] input=%s run failed: %v", in.Name, err)
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
	wg.Wait()
}
