// Package directory implements the LDAP backed attribute provider.
//
// The provider owns exactly one connection handle. Binding with the service
// account is coalesced across concurrent requests, and a connection reset
// replaces the handle so the next resolution binds again on a fresh one.
package directory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"userinfo-service/internal/provider"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Name is the context path postfix of this provider.
const Name = "ldap"

// UserIDPlaceholder is replaced by the user id in the search filter.
const UserIDPlaceholder = "${userid}"

const (
	defaultSearchPattern    = "(uid=" + UserIDPlaceholder + ")"
	defaultRoleAttribute    = "memberOf"
	defaultSearchBufferSize = 16
)

var defaultUserAttributes = []string{"cn", "sn"}

var (
	// ErrDirectoryCommunication wraps bind and search transport failures.
	ErrDirectoryCommunication = errors.New("directory communication failed")
	// ErrMultipleMatches is returned when a user id matches several entries.
	ErrMultipleMatches = errors.New("multiple matches found")
)

// SearchSpec describes how a user is looked up.
type SearchSpec struct {
	BaseDN         string
	FilterTemplate string
	RoleAttribute  string
	Attributes     []string
}

// Config configures a Provider.
type Config struct {
	URL      string
	User     string
	Password string
	Search   SearchSpec
	// Timeout bounds dialing and every directory request. Zero keeps the
	// client defaults.
	Timeout          time.Duration
	SearchBufferSize int
	// Connect overrides how connection handles are created.
	Connect ConnFactory
}

type credentials struct {
	user     string
	password string
}

// Provider resolves attributes by searching the directory.
type Provider struct {
	name       string
	search     SearchSpec
	creds      *credentials
	connect    ConnFactory
	bufferSize int
	logger     *zap.Logger

	flight singleflight.Group

	mu          sync.Mutex
	conn        Conn
	unsubscribe func()
	state       State
	generation  uint64
	closed      bool
}

// New creates a provider. Binding is skipped when no credentials are set.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provider{
		name:       Name,
		search:     cfg.Search,
		connect:    cfg.Connect,
		bufferSize: cfg.SearchBufferSize,
		logger:     logger,
	}
	if cfg.User != "" && cfg.Password != "" {
		p.creds = &credentials{user: cfg.User, password: cfg.Password}
	}
	if p.search.FilterTemplate == "" {
		p.search.FilterTemplate = defaultSearchPattern
	}
	if p.bufferSize <= 0 {
		p.bufferSize = defaultSearchBufferSize
	}
	if p.connect == nil {
		url, timeout := cfg.URL, cfg.Timeout
		p.connect = func() Conn { return NewLDAPConn(url, timeout) }
	}

	p.mu.Lock()
	p.attach(p.connect())
	p.mu.Unlock()

	return p
}

func (p *Provider) Name() string {
	return p.name
}

// Resolve looks up the user. Anonymous identities and unknown users yield no
// result; more than one matching entry is an error.
func (p *Provider) Resolve(ctx context.Context, info provider.UserInfo) (provider.Attributes, error) {
	if info.Anonymous {
		return nil, nil
	}

	attrs, err := p.resolve(ctx, info)
	if errors.Is(err, errConnDropped) {
		// Nothing was sent on the dropped connection and the handle has been
		// replaced, so one more attempt binds on the new one.
		p.logger.Info("directory connection dropped while idle, retrying",
			zap.String("provider", p.name))
		attrs, err = p.resolve(ctx, info)
	}
	return attrs, err
}

func (p *Provider) resolve(ctx context.Context, info provider.UserInfo) (provider.Attributes, error) {
	if err := p.bind(ctx); err != nil {
		return nil, err
	}

	req := p.searchRequest(info.UserID)
	p.logger.Info("search directory",
		zap.String("provider", p.name),
		zap.String("filter", req.Filter))

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	resp := conn.SearchAsync(ctx, req, p.bufferSize)

	var first *ldap.Entry
	count := 0
	for resp.Next() {
		entry := resp.Entry()
		if entry == nil {
			continue
		}
		count++
		if first == nil {
			first = entry
		}
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrDirectoryCommunication, err)
	}

	switch count {
	case 0:
		return nil, nil
	case 1:
		return normalizeEntry(first, p.search.RoleAttribute), nil
	default:
		return nil, fmt.Errorf("%w for user '%s'", ErrMultipleMatches, info.UserID)
	}
}

func (p *Provider) searchRequest(userID string) *ldap.SearchRequest {
	filter := strings.ReplaceAll(p.search.FilterTemplate, UserIDPlaceholder, ldap.EscapeFilter(userID))

	attributes := slices.Clone(p.search.Attributes)
	if p.search.RoleAttribute != "" {
		attributes = append(attributes, p.search.RoleAttribute)
	}

	return ldap.NewSearchRequest(
		p.search.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		attributes,
		nil,
	)
}

// Close disposes the connection handle.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	p.conn.Close()
	p.state = Unbound
	p.generation++
	return nil
}
