package directory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-ldap/ldap/v3"
)

type fakeConn struct {
	bindCalls atomic.Int32

	mu        sync.Mutex
	bindGate  chan struct{}
	bindErr   error
	entries   []*ldap.Entry
	searchErr error
	requests  []*ldap.SearchRequest
	listeners map[int]func(error)
	nextID    int
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{listeners: make(map[int]func(error))}
}

func (c *fakeConn) Bind(_ context.Context, _, _ string) error {
	c.bindCalls.Add(1)

	c.mu.Lock()
	gate, err := c.bindGate, c.bindErr
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (c *fakeConn) SearchAsync(_ context.Context, req *ldap.SearchRequest, _ int) ldap.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return &fakeResponse{entries: c.entries, err: c.searchErr, idx: -1}
}

func (c *fakeConn) Subscribe(fn func(error)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// emit delivers a connection error the way the real client does: outside of
// any lock held by the handle.
func (c *fakeConn) emit(err error) {
	c.mu.Lock()
	fns := make([]func(error), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

func (c *fakeConn) searchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeConn) listenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeResponse struct {
	entries []*ldap.Entry
	err     error
	idx     int
}

func (r *fakeResponse) Next() bool {
	if r.idx+1 < len(r.entries) {
		r.idx++
		return true
	}
	return false
}

func (r *fakeResponse) Entry() *ldap.Entry {
	if r.idx < 0 || r.idx >= len(r.entries) {
		return nil
	}
	return r.entries[r.idx]
}

func (r *fakeResponse) Referral() string         { return "" }
func (r *fakeResponse) Controls() []ldap.Control { return nil }
func (r *fakeResponse) Err() error               { return r.err }

// fakeFactory records every handle the provider creates.
type fakeFactory struct {
	mu      sync.Mutex
	conns   []*fakeConn
	prepare func(*fakeConn)
}

func (f *fakeFactory) connect() Conn {
	c := newFakeConn()
	if f.prepare != nil {
		f.prepare(c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns = append(f.conns, c)
	return c
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

func (f *fakeFactory) conn(i int) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

func entry(dn string, attrs map[string][]string) *ldap.Entry {
	return ldap.NewEntry(dn, attrs)
}
