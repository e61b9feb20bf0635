package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

var errConnReplaced = errors.New("connection replaced during bind")

// State is the bind state of the directory connection.
type State int

const (
	// Unbound means no bind succeeded since the connection was (re)created.
	Unbound State = iota
	// Binding means a bind is in flight; callers share its outcome.
	Binding
	// Bound means the service account is authenticated.
	Bound
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Binding:
		return "binding"
	case Bound:
		return "bound"
	default:
		return "unknown"
	}
}

// State returns the current bind state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// bind makes sure the connection is bound before a search. Concurrent
// callers of one generation share a single bind round trip.
func (p *Provider) bind(ctx context.Context) error {
	if p.creds == nil {
		return nil
	}

	p.mu.Lock()
	if p.state == Bound {
		p.mu.Unlock()
		return nil
	}
	p.state = Binding
	gen := p.generation
	conn := p.conn
	p.mu.Unlock()

	ch := p.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return nil, p.runBind(ctx, gen, conn)
	})
	p.logger.Debug("waiting for directory bind",
		zap.String("provider", p.name),
		zap.Uint64("generation", gen))

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) runBind(ctx context.Context, gen uint64, conn Conn) error {
	p.mu.Lock()
	if p.generation != gen {
		p.mu.Unlock()
		return fmt.Errorf("%w: bind: %w", ErrDirectoryCommunication, errConnReplaced)
	}
	if p.state == Bound {
		p.mu.Unlock()
		return nil
	}
	p.state = Binding
	p.mu.Unlock()

	// The bind is shared, so it must outlive the caller that started it.
	err := conn.Bind(context.WithoutCancel(ctx), p.creds.user, p.creds.password)

	p.mu.Lock()
	switch {
	case p.generation != gen:
		// The handle was replaced meanwhile; this bind no longer counts.
		if err == nil {
			err = errConnReplaced
		}
	case err == nil:
		p.state = Bound
	default:
		p.state = Unbound
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("error during bind to directory",
			zap.String("provider", p.name),
			zap.String("bind_dn", p.creds.user),
			zap.Error(err))
		return fmt.Errorf("%w: bind: %w", ErrDirectoryCommunication, err)
	}
	return nil
}

// attach installs conn as the current handle. Callers hold p.mu.
func (p *Provider) attach(conn Conn) {
	p.conn = conn
	p.unsubscribe = conn.Subscribe(func(err error) {
		p.onConnError(conn, err)
	})
}

// onConnError handles asynchronous connection errors. A reset replaces the
// handle; any error reverts the bind state.
func (p *Provider) onConnError(conn Conn, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || conn != p.conn {
		return
	}

	if IsReset(err) {
		p.logger.Warn("directory connection reset, recreating the client",
			zap.String("provider", p.name),
			zap.Error(err))
		if p.unsubscribe != nil {
			p.unsubscribe()
		}
		conn.Close()
		p.attach(p.connect())
	} else {
		p.logger.Error("unexpected error in directory client",
			zap.String("provider", p.name),
			zap.Error(err))
	}

	p.state = Unbound
	p.generation++
}
