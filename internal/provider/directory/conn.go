package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/go-ldap/ldap/v3"
)

var (
	// ErrConnReset marks a connection error after which the handle is unusable.
	ErrConnReset = errors.New("directory connection reset")
	// ErrConnClosed is returned by operations on a disposed handle.
	ErrConnClosed = errors.New("directory connection closed")

	// errConnDropped means the server closed the connection while it was
	// idle. No request was sent on it.
	errConnDropped = errors.New("connection dropped by server")
)

// Conn is a connection handle to one directory server. Connection level
// failures are delivered asynchronously to subscribers.
type Conn interface {
	Bind(ctx context.Context, username, password string) error
	SearchAsync(ctx context.Context, req *ldap.SearchRequest, bufferSize int) ldap.Response
	// Subscribe registers fn for connection errors and returns a func that
	// detaches it.
	Subscribe(fn func(error)) (unsubscribe func())
	Close()
}

// ConnFactory creates a fresh handle against the configured target.
type ConnFactory func() Conn

// IsReset reports whether err requires the handle to be replaced.
func IsReset(err error) bool {
	return errors.Is(err, ErrConnReset) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// ldapConn dials lazily, so creating a handle never blocks.
type ldapConn struct {
	url     string
	timeout time.Duration

	mu        sync.Mutex
	conn      *ldap.Conn
	closed    bool
	listeners map[int]func(error)
	nextID    int
}

// NewLDAPConn returns a handle backed by github.com/go-ldap/ldap/v3.
func NewLDAPConn(url string, timeout time.Duration) Conn {
	return &ldapConn{
		url:       url,
		timeout:   timeout,
		listeners: make(map[int]func(error)),
	}
}

// get returns the live connection, dialing the first one on demand. A
// connection the server dropped is not redialed: it is reported as a reset so
// the owner replaces the whole handle and binds again.
func (c *ldapConn) get() (*ldap.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if c.conn != nil {
		if !c.conn.IsClosing() {
			return c.conn, nil
		}
		stale := c.conn
		c.conn = nil
		go stale.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnReset, errConnDropped)
	}

	var opts []ldap.DialOpt
	if c.timeout > 0 {
		opts = append(opts, ldap.DialWithDialer(&net.Dialer{Timeout: c.timeout}))
	}
	conn, err := ldap.DialURL(c.url, opts...)
	if err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		conn.SetTimeout(c.timeout)
	}
	c.conn = conn
	return conn, nil
}

func (c *ldapConn) Bind(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := c.get()
	if err != nil {
		c.report(conn, err)
		return err
	}
	if err := conn.Bind(username, password); err != nil {
		c.report(conn, err)
		return err
	}
	return nil
}

func (c *ldapConn) SearchAsync(ctx context.Context, req *ldap.SearchRequest, bufferSize int) ldap.Response {
	conn, err := c.get()
	if err != nil {
		c.report(conn, err)
		return &failedResponse{err: err}
	}
	return &reportingResponse{
		Response: conn.SearchAsync(ctx, req, bufferSize),
		report:   func(err error) { c.report(conn, err) },
	}
}

func (c *ldapConn) Subscribe(fn func(error)) func() {
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

func (c *ldapConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.listeners = make(map[int]func(error))
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// report forwards connection level errors to subscribers. Protocol results
// such as invalid credentials are not connection errors.
//
// go-ldap closes the connection when its reader fails and hands waiters a
// plain error without the socket cause, so a closing connection is what marks
// a reset.
func (c *ldapConn) report(conn *ldap.Conn, err error) {
	switch {
	case err == nil:
		return
	case conn != nil && conn.IsClosing():
		if !IsReset(err) {
			err = fmt.Errorf("%w: %w", ErrConnReset, err)
		}
	case !isConnectionError(err):
		return
	case errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed):
		err = fmt.Errorf("%w: %w", ErrConnReset, err)
	}

	c.mu.Lock()
	listeners := make([]func(error), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(err)
	}
}

func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) || IsReset(err)
}

type reportingResponse struct {
	ldap.Response
	report   func(error)
	reported bool
}

func (r *reportingResponse) Next() bool {
	if r.Response.Next() {
		return true
	}
	if err := r.Response.Err(); err != nil && !r.reported {
		r.reported = true
		r.report(err)
	}
	return false
}

type failedResponse struct {
	err error
}

func (r *failedResponse) Entry() *ldap.Entry       { return nil }
func (r *failedResponse) Referral() string         { return "" }
func (r *failedResponse) Controls() []ldap.Control { return nil }
func (r *failedResponse) Err() error               { return r.err }
func (r *failedResponse) Next() bool               { return false }
