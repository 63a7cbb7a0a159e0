package fetch

import (
	"context"
	"sync"
)

// Lazy holds the process-wide Client. The client is built on first use,
// at most once even under concurrent first calls, and reused afterwards.
// Construct one Lazy at startup and pass it to every adapter.
type Lazy struct {
	build func() *Client

	once   sync.Once
	client *Client

	mu    sync.Mutex
	built bool
}

// NewLazy returns a holder that calls build on first use. A nil build
// yields a Client with default settings.
func NewLazy(build func() *Client) *Lazy {
	return &Lazy{build: build}
}

// Client returns the shared client, building it if needed.
func (l *Lazy) Client() *Client {
	l.once.Do(func() {
		if l.build != nil {
			l.client = l.build()
		}
		if l.client == nil {
			l.client = &Client{}
		}
		l.mu.Lock()
		l.built = true
		l.mu.Unlock()
	})
	return l.client
}

// Built reports whether the client has been created.
func (l *Lazy) Built() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.built
}

// CloseIdleConnections closes idle connections of the client if it has
// been built.
func (l *Lazy) CloseIdleConnections() {
	if l.Built() {
		l.Client().CloseIdleConnections()
	}
}

// Get implements Getter.
func (l *Lazy) Get(ctx context.Context, url string) (*Response, error) {
	return l.Client().Get(ctx, url)
}
