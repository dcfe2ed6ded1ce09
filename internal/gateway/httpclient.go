package gateway

import (
	"net"
	"net/http"
	"time"
)

// newTransport returns a pooled transport. headerTimeout bounds the wait
// for response headers only, so long-lived streams are not cut off.
func newTransport(headerTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// newHTTPClient has no overall timeout; callers bound requests with a context.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = defaultTimeout
	}
	return &http.Client{Transport: newTransport(headerTimeout)}
}
