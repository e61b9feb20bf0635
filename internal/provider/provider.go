// Package provider defines the attribute provider contract and the registry
// that dispatches a user identity to the provider named by the request.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// AnonymousKey is the user table key consulted for anonymous identities.
const AnonymousKey = "$anonymous"

// RolesKey is the reserved attribute holding role names.
const RolesKey = "roles"

var (
	// ErrNoProviders is returned when no provider is enabled at startup.
	ErrNoProviders = errors.New("you need to enable at least one provider")
	// ErrConfiguration marks a missing or invalid provider configuration.
	ErrConfiguration = errors.New("invalid provider configuration")
)

// UserInfo is the identity forwarded by the gateway.
type UserInfo struct {
	Anonymous bool     `json:"anonymous"`
	UserID    string   `json:"userId"`
	Roles     []string `json:"roles"`
}

// Attributes is a flat attribute map. Values are strings, numbers, booleans
// or homogeneous slices of those. A nil map means "no result".
type Attributes map[string]any

// Provider resolves additional attributes for a user.
type Provider interface {
	// Name is used as the context path postfix.
	Name() string
	Resolve(ctx context.Context, info UserInfo) (Attributes, error)
}

// ConfigError wraps a configuration problem of a single provider.
func ConfigError(source string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrConfiguration, source, err)
}

// ValidateAttributes checks that attrs contains no nested values. Arrays must
// hold scalars of a single kind.
func ValidateAttributes(attrs Attributes) error {
	for key, value := range attrs {
		switch v := value.(type) {
		case nil, string, bool, float64, int, int64, uint64:
		case []string, []bool, []float64, []int:
		case []any:
			kind := ""
			for _, elem := range v {
				k := scalarKind(elem)
				if k == "" {
					return fmt.Errorf("attribute %q: array elements must be scalars", key)
				}
				if kind != "" && k != kind {
					return fmt.Errorf("attribute %q: array elements must share one type", key)
				}
				kind = k
			}
		default:
			return fmt.Errorf("attribute %q: unsupported value of type %T", key, value)
		}
	}
	return nil
}

func scalarKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, int, int64, uint64:
		return "number"
	default:
		return ""
	}
}
