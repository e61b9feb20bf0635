package provider

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// Resolution outcomes reported to a Recorder.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Recorder observes every provider invocation made by the registry.
type Recorder interface {
	RecordResolution(provider, outcome string, elapsed time.Duration)
}

// Registry holds the enabled providers in registration order. It is read-only
// after construction.
type Registry struct {
	providers []Provider
	logger    *zap.Logger
	recorder  Recorder
}

// NewRegistry creates a registry. At least one provider is required.
func NewRegistry(logger *zap.Logger, providers ...Provider) (*Registry, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		providers: append([]Provider(nil), providers...),
		logger:    logger,
	}, nil
}

// SetRecorder attaches a resolution recorder.
func (r *Registry) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Names returns the distinct provider names in registration order.
func (r *Registry) Names() []string {
	seen := make(map[string]struct{}, len(r.providers))
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		if _, ok := seen[p.Name()]; ok {
			continue
		}
		seen[p.Name()] = struct{}{}
		names = append(names, p.Name())
	}
	return names
}

// Resolve asks every provider registered under name, in order, and returns
// the first non-nil result. A failing provider is logged and skipped. When no
// provider answers the result is nil without error.
func (r *Registry) Resolve(ctx context.Context, info UserInfo, name string) (Attributes, error) {
	for _, p := range r.providers {
		if p.Name() != name {
			continue
		}

		start := time.Now()
		attrs, err := p.Resolve(ctx, info)
		elapsed := time.Since(start)

		if err != nil {
			r.record(name, OutcomeError, elapsed)
			r.logger.Warn("unexpected error during resolving of attributes",
				zap.String("provider", name),
				zap.String("user_id", info.UserID),
				zap.Error(err))
			continue
		}
		if attrs == nil {
			r.record(name, OutcomeMiss, elapsed)
			continue
		}

		r.record(name, OutcomeHit, elapsed)
		return attrs, nil
	}
	return nil, nil
}

func (r *Registry) record(name, outcome string, elapsed time.Duration) {
	if r.recorder != nil {
		r.recorder.RecordResolution(name, outcome, elapsed)
	}
}

// Close disposes every provider that holds resources.
func (r *Registry) Close() error {
	var errs []error
	for _, p := range r.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
