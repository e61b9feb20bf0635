package handler

import (
	"context"

	"userinfo-service/internal/provider"
)

// AttributeResolver dispatches a lookup to the providers registered under a
// name. *provider.Registry satisfies it.
type AttributeResolver interface {
	Names() []string
	Resolve(ctx context.Context, info provider.UserInfo, name string) (provider.Attributes, error)
}
