package risk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Network threat strings.
const (
	ThreatUnencrypted   = "Unencrypted connection detected"
	ThreatCertificate   = "Certificate validation failed"
	ThreatProxyDetected = "Proxy or VPN detected"
)

// NetworkReport is the outcome of a network posture check.
type NetworkReport struct {
	Secure           bool
	Encrypted        bool
	CertificateValid bool
	ProxyDetected    bool
	Threats          []string
}

// NetworkProbe evaluates transport security toward the API.
type NetworkProbe interface {
	Check(ctx context.Context) (NetworkReport, error)
}

// URLNetworkProbe judges the configured API base URL. It requires https
// and at least one certificate pin outside dev mode, and flags a proxy
// configured for the base URL.
type URLNetworkProbe struct {
	BaseURL string
	Pins    []string
	DevMode bool

	// Proxy defaults to http.ProxyFromEnvironment.
	Proxy func(*http.Request) (*url.URL, error)
}

func (p *URLNetworkProbe) Check(ctx context.Context) (NetworkReport, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return NetworkReport{}, fmt.Errorf("parse base url: %w", err)
	}
	if u.Host == "" {
		return NetworkReport{}, fmt.Errorf("base url %q has no host", p.BaseURL)
	}

	var r NetworkReport
	r.Encrypted = u.Scheme == "https"
	if !r.Encrypted && !p.DevMode {
		r.Threats = append(r.Threats, ThreatUnencrypted)
	}

	r.CertificateValid = p.DevMode || (r.Encrypted && len(p.Pins) > 0)
	if !r.CertificateValid {
		r.Threats = append(r.Threats, ThreatCertificate)
	}

	proxy := p.Proxy
	if proxy == nil {
		proxy = http.ProxyFromEnvironment
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return NetworkReport{}, err
	}
	proxyURL, err := proxy(req)
	if err != nil {
		return NetworkReport{}, fmt.Errorf("resolve proxy: %w", err)
	}
	r.ProxyDetected = proxyURL != nil
	if r.ProxyDetected {
		r.Threats = append(r.Threats, ThreatProxyDetected)
	}

	r.Secure = r.Encrypted && r.CertificateValid && len(r.Threats) == 0
	return r, nil
}

// SecureNetwork is a [NetworkProbe] that always reports a secure link.
type SecureNetwork struct{}

func (SecureNetwork) Check(context.Context) (NetworkReport, error) {
	return NetworkReport{Secure: true, Encrypted: true, CertificateValid: true}, nil
}
