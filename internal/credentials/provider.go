// Package credentials is the boundary to credential/config storage: per
// account, the API credentials and optional client certificate material,
// plus optional proxy settings. How the secrets are stored and encrypted is
// the provider's concern, not the pipeline's.
package credentials

import (
	"fmt"
	"net/url"
	"os"
)

// Account holds the credentials associated with one configured account.
// Certificate material is either file paths or raw PEM content; paths are
// preferred when both are present.
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	CertPath string `yaml:"client_cert_path"`
	KeyPath  string `yaml:"client_key_path"`
	CertPEM  string `yaml:"client_cert_pem"`
	KeyPEM   string `yaml:"client_key_pem"`
}

// Proxy holds outbound proxy settings. Type is http, https, or socks5.
type Proxy struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// URL renders the proxy as a URL string usable by http.Transport,
// or "" when unset.
func (p *Proxy) URL() string {
	if p == nil || p.Host == "" {
		return ""
	}
	scheme := p.Type
	if scheme == "" {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}

// Provider resolves account credentials and proxy settings by name.
type Provider interface {
	Account(name string) (Account, error)
	ProxySettings() (*Proxy, error)
}

// StaticProvider serves credentials loaded from the configuration file.
// Password-like fields support ${ENV_VAR} indirection so secrets can stay
// out of the file itself.
type StaticProvider struct {
	Accounts map[string]Account
	Proxy    *Proxy
}

// Account returns the named account with env indirection expanded.
func (s *StaticProvider) Account(name string) (Account, error) {
	acct, ok := s.Accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("unknown account: %q", name)
	}
	acct.Username = expandEnv(acct.Username)
	acct.Password = expandEnv(acct.Password)
	return acct, nil
}

// ProxySettings returns the configured proxy, or nil for direct connections.
func (s *StaticProvider) ProxySettings() (*Proxy, error) {
	return s.Proxy, nil
}

func expandEnv(v string) string {
	if len(v) > 3 && v[:2] == "${" && v[len(v)-1] == '}' {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}
