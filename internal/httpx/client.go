package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "rise-pilot/1.0"

// ParseProxy normalizes the proxy notations found in account lists into a
// URL. An empty input means a direct connection and returns nil.
//
// Accepted forms: scheme://[user:pass@]host:port, user:pass@host:port,
// host:port and host:port:user:pass. Bare forms default to http.
func ParseProxy(raw string) (*url.URL, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return nil, nil
	}
	if !strings.Contains(clean, "://") {
		parts := strings.Split(clean, ":")
		if len(parts) == 4 && !strings.Contains(clean, "@") {
			clean = fmt.Sprintf("%s:%s@%s:%s", parts[2], parts[3], parts[0], parts[1])
		}
		clean = "http://" + clean
	}
	u, err := url.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("parse proxy: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("proxy %q must include host and port", MaskProxy(u))
	}
	return u, nil
}

// MaskProxy hides proxy credentials for logs and listings.
func MaskProxy(u *url.URL) string {
	if u == nil {
		return "direct"
	}
	masked := *u
	if masked.User != nil {
		masked.User = url.User("***")
	}
	return masked.String()
}

// New returns an HTTP client whose transport is routed through proxy. A nil
// proxy dials the target directly and ignores environment proxy settings.
func New(proxy *url.URL, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{
		Transport: &userAgentTransport{base: transport},
		Timeout:   timeout,
	}
}

// CloseIdle releases pooled connections held by a client built with New.
func CloseIdle(client *http.Client) {
	if client == nil {
		return
	}
	client.CloseIdleConnections()
}

type userAgentTransport struct {
	base *http.Transport
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.base.RoundTrip(req)
}

func (t *userAgentTransport) CloseIdleConnections() {
	t.base.CloseIdleConnections()
}

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	if nerr, ok := err.(net.Error); ok {
		return nerr.Timeout()
	}
	return false
}
