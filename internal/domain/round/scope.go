package round

import (
	"context"
	"fmt"
)

// ScopeResolver derives a round's client scope from its template or its
// single ad hoc client.
type ScopeResolver struct {
	rounds    Repository
	templates TemplateSource
}

// NewScopeResolver creates a scope resolver.
func NewScopeResolver(rounds Repository, templates TemplateSource) *ScopeResolver {
	return &ScopeResolver{rounds: rounds, templates: templates}
}

// Scope loads the round and returns its scope.
func (s *ScopeResolver) Scope(ctx context.Context, tenantID, roundID string) (Scope, error) {
	r, err := getRound(ctx, s.rounds, tenantID, roundID)
	if err != nil {
		return Scope{}, err
	}
	return s.ScopeOf(ctx, tenantID, r)
}

// ScopeOf returns the scope of an already loaded round.
func (s *ScopeResolver) ScopeOf(ctx context.Context, tenantID string, r *Round) (Scope, error) {
	if r.IsAdHoc() {
		if r.ClientID == nil {
			return Scope{}, fmt.Errorf("round %s has neither template nor client", r.ID)
		}
		return Scope{RoundID: r.ID, ClientIDs: []string{*r.ClientID}}, nil
	}

	tmpl, err := s.templates.Get(ctx, tenantID, *r.TemplateID)
	if err != nil {
		return Scope{}, fmt.Errorf("loading round template: %w", err)
	}
	return Scope{RoundID: r.ID, ClientIDs: append([]string(nil), tmpl.ClientIDs...)}, nil
}

// ClientIDs returns the ordered client ids in the round's scope.
func (s *ScopeResolver) ClientIDs(ctx context.Context, tenantID, roundID string) ([]string, error) {
	sc, err := s.Scope(ctx, tenantID, roundID)
	if err != nil {
		return nil, err
	}
	return sc.ClientIDs, nil
}
