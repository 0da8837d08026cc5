package template

import "context"

// Repository provides persistence for templates and their client lists.
type Repository interface {
	Create(ctx context.Context, tenantID string, tmpl *Template) error
	Get(ctx context.Context, tenantID, id string) (*Template, error)
	List(ctx context.Context, tenantID string, includeInactive bool) ([]Template, error)
	Deactivate(ctx context.Context, tenantID, id string) error
}
