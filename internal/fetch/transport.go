package fetch

import (
	"net"
	"net/http"
	"time"
)

// newTransport returns a pooled transport shared by every request of one
// Client. Dial and TLS timeouts stay below the per-request timeout so a
// stalled handshake surfaces as a transport error rather than a hang.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
