package client

import "context"

// Repository provides persistence for clients.
type Repository interface {
	Create(ctx context.Context, tenantID string, c *Client) error
	Get(ctx context.Context, tenantID, id string) (*Client, error)
	List(ctx context.Context, tenantID string) ([]Client, error)
}
