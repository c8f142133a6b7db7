package rpc

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	TTFB       time.Duration
	Total      time.Duration
	ConnReused bool
}

// TracedClient is an http.Client that records per-request connection timings.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient(jar http.CookieJar, timeout time.Duration) *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// requestTrace collects timings from httptrace hooks, which net/http may
// fire on its read and write loop goroutines.
type requestTrace struct {
	mu      sync.Mutex
	metrics NetworkMetrics

	getConn, dnsStart, tcpStart, tlsStart, wrote time.Time
}

func (t *requestTrace) mark(at *time.Time) {
	t.mu.Lock()
	*at = time.Now()
	t.mu.Unlock()
}

func (t *requestTrace) since(from *time.Time, into *time.Duration) {
	t.mu.Lock()
	*into = time.Since(*from)
	t.mu.Unlock()
}

func (t *requestTrace) hooks() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(_ string) { t.mark(&t.getConn) },
		GotConn: func(info httptrace.GotConnInfo) {
			t.mu.Lock()
			t.metrics.ConnWait = time.Since(t.getConn)
			t.metrics.ConnReused = info.Reused
			t.mu.Unlock()
		},
		DNSStart:             func(_ httptrace.DNSStartInfo) { t.mark(&t.dnsStart) },
		DNSDone:              func(_ httptrace.DNSDoneInfo) { t.since(&t.dnsStart, &t.metrics.DNS) },
		ConnectStart:         func(_, _ string) { t.mark(&t.tcpStart) },
		ConnectDone:          func(_, _ string, _ error) { t.since(&t.tcpStart, &t.metrics.TCP) },
		TLSHandshakeStart:    func() { t.mark(&t.tlsStart) },
		TLSHandshakeDone:     func(_ tls.ConnectionState, _ error) { t.since(&t.tlsStart, &t.metrics.TLS) },
		WroteRequest:         func(_ httptrace.WroteRequestInfo) { t.mark(&t.wrote) },
		GotFirstResponseByte: func() { t.since(&t.wrote, &t.metrics.TTFB) },
	}
}

func (t *requestTrace) snapshot(total time.Duration) *NetworkMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.metrics
	m.Total = total
	return &m
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	trace := &requestTrace{}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace.hooks()))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    trace.snapshot(time.Since(start)),
	}, nil
}

// Warm opens a connection to url ahead of the first real call.
func (c *TracedClient) Warm(url string) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
