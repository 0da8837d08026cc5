package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/patrol/internal/feed"
	"golang.org/x/sync/singleflight"
)

// scope is the static part of a round's progress: its clients and their
// active checkpoints.
type scope struct {
	clientIDs   []string
	checkpoints map[string]map[string]struct{}
}

func (s *scope) includes(clientID string) bool {
	_, ok := s.checkpoints[clientID]
	return ok
}

type snapshot struct {
	progress ClientProgress
	dirty    bool
	gen      uint64
}

type roundCache struct {
	scope     *scope
	snapshots map[string]*snapshot
}

// Aggregator computes per-client and per-round progress. Scopes and
// client snapshots are cached per round; feed events invalidate them.
type Aggregator struct {
	scopes      ScopeSource
	checkpoints CheckpointSource
	visits      VisitSource
	publisher   feed.Publisher
	logger      *slog.Logger

	mu     sync.Mutex
	rounds map[string]*roundCache
	loads  singleflight.Group
}

// NewAggregator creates a progress aggregator.
func NewAggregator(scopes ScopeSource, checkpoints CheckpointSource, visits VisitSource, publisher feed.Publisher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &Aggregator{
		scopes:      scopes,
		checkpoints: checkpoints,
		visits:      visits,
		publisher:   publisher,
		logger:      logger,
		rounds:      make(map[string]*roundCache),
	}
}

func cacheKey(tenantID, roundID string) string {
	return tenantID + "/" + roundID
}

// Evaluate derives progress straight from the store, bypassing every cache.
func (a *Aggregator) Evaluate(ctx context.Context, tenantID, roundID string) (*RoundProgress, error) {
	sc, err := a.loadScope(ctx, tenantID, roundID)
	if err != nil {
		return nil, err
	}
	visited, err := a.visits.VisitedByRound(ctx, tenantID, roundID)
	if err != nil {
		return nil, fmt.Errorf("loading visits: %w", err)
	}

	clients := make([]ClientProgress, 0, len(sc.clientIDs))
	for _, clientID := range sc.clientIDs {
		clients = append(clients, a.count(roundID, clientID, sc.checkpoints[clientID], visited))
	}
	return aggregate(roundID, clients), nil
}

// Progress returns round progress, recomputing only clients whose
// snapshot is missing or dirty.
func (a *Aggregator) Progress(ctx context.Context, tenantID, roundID string) (*RoundProgress, error) {
	key := cacheKey(tenantID, roundID)
	sc, err := a.cachedScope(ctx, tenantID, roundID)
	if err != nil {
		return nil, err
	}

	// Snapshot generations observed before reading visits; a visit event
	// arriving mid-read bumps the generation and keeps the client dirty.
	stale := make(map[string]uint64)
	known := make(map[string]ClientProgress)
	a.mu.Lock()
	rc := a.rounds[key]
	for _, clientID := range sc.clientIDs {
		if rc == nil || rc.scope != sc {
			stale[clientID] = 0
			continue
		}
		snap := rc.snapshots[clientID]
		if snap == nil {
			snap = &snapshot{dirty: true}
			rc.snapshots[clientID] = snap
		}
		if snap.dirty {
			stale[clientID] = snap.gen
		} else {
			known[clientID] = snap.progress
		}
	}
	a.mu.Unlock()

	fresh := make(map[string]ClientProgress, len(stale))
	for clientID := range stale {
		visited, err := a.visits.VisitedByClient(ctx, tenantID, roundID, clientID)
		if err != nil {
			return nil, fmt.Errorf("loading visits for client %s: %w", clientID, err)
		}
		fresh[clientID] = a.count(roundID, clientID, sc.checkpoints[clientID], visited)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	clients := make([]ClientProgress, 0, len(sc.clientIDs))
	rc = a.rounds[key]
	if rc == nil || rc.scope != sc {
		// Evicted while recomputing; answer from what was already read.
		for _, clientID := range sc.clientIDs {
			if p, ok := fresh[clientID]; ok {
				clients = append(clients, p)
				continue
			}
			clients = append(clients, known[clientID])
		}
		return aggregate(roundID, clients), nil
	}

	for _, clientID := range sc.clientIDs {
		snap := rc.snapshots[clientID]
		if snap == nil {
			snap = &snapshot{dirty: true}
			rc.snapshots[clientID] = snap
		}
		if p, ok := fresh[clientID]; ok {
			snap.progress = p
			if snap.gen == stale[clientID] {
				snap.dirty = false
			}
		}
		clients = append(clients, snap.progress)
	}
	return aggregate(roundID, clients), nil
}

// count derives one client's snapshot from its active set and the
// round's distinct visited checkpoint ids.
func (a *Aggregator) count(roundID, clientID string, active map[string]struct{}, visited []string) ClientProgress {
	p := ClientProgress{ClientID: clientID, Total: len(active)}
	seen := make(map[string]struct{}, len(visited))
	for _, id := range visited {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := active[id]; ok {
			p.Completed++
		}
	}
	if p.Completed > p.Total {
		a.logger.Warn("clamping checkpoint progress",
			"round_id", roundID,
			"client_id", clientID,
			"completed", p.Completed,
			"total", p.Total,
		)
		p.Completed = p.Total
	}
	return p
}

func (a *Aggregator) cachedScope(ctx context.Context, tenantID, roundID string) (*scope, error) {
	key := cacheKey(tenantID, roundID)

	a.mu.Lock()
	if rc := a.rounds[key]; rc != nil {
		a.mu.Unlock()
		return rc.scope, nil
	}
	a.mu.Unlock()

	// The shared load outlives any one caller; each waiter still honors
	// its own cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := a.loads.DoChan(key, func() (any, error) {
		a.mu.Lock()
		if rc := a.rounds[key]; rc != nil {
			a.mu.Unlock()
			return rc.scope, nil
		}
		a.mu.Unlock()

		sc, err := a.loadScope(loadCtx, tenantID, roundID)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.rounds[key] = &roundCache{scope: sc, snapshots: make(map[string]*snapshot)}
		return sc, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*scope), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Aggregator) loadScope(ctx context.Context, tenantID, roundID string) (*scope, error) {
	clientIDs, err := a.scopes.ClientIDs(ctx, tenantID, roundID)
	if err != nil {
		return nil, fmt.Errorf("loading round scope: %w", err)
	}
	cps, err := a.checkpoints.ListActiveByClients(ctx, tenantID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("loading scope checkpoints: %w", err)
	}

	sc := &scope{
		clientIDs:   clientIDs,
		checkpoints: make(map[string]map[string]struct{}, len(clientIDs)),
	}
	for _, id := range clientIDs {
		sc.checkpoints[id] = make(map[string]struct{})
	}
	for _, cp := range cps {
		if set, ok := sc.checkpoints[cp.ClientID]; ok {
			set[cp.ID] = struct{}{}
		}
	}
	return sc, nil
}

// HandleEvent applies targeted invalidation for a feed event.
func (a *Aggregator) HandleEvent(ctx context.Context, evt feed.Event) {
	switch evt.Type {
	case feed.EventVisitRecorded:
		a.markDirty(evt.TenantID, evt.RoundID, evt.ClientID)
		a.notify(ctx, evt.TenantID, evt.RoundID)
	case feed.EventCheckpointChanged:
		for _, roundID := range a.evictClient(evt.TenantID, evt.ClientID) {
			a.notify(ctx, evt.TenantID, roundID)
		}
	case feed.EventRoundCompleted:
		a.Evict(evt.TenantID, evt.RoundID)
	case feed.EventRoundStarted:
		if _, err := a.cachedScope(ctx, evt.TenantID, evt.RoundID); err != nil {
			a.logger.Warn("failed to load round scope", "round_id", evt.RoundID, "error", err)
		}
	}
}

// Run consumes events from bus until ctx is canceled.
func (a *Aggregator) Run(ctx context.Context, bus feed.Bus) error {
	return bus.StartForwarder(ctx, func(evt feed.Event) {
		a.HandleEvent(ctx, evt)
	})
}

// Evict drops every cached value of a round.
func (a *Aggregator) Evict(tenantID, roundID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.rounds, cacheKey(tenantID, roundID))
}

func (a *Aggregator) markDirty(tenantID, roundID, clientID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rc := a.rounds[cacheKey(tenantID, roundID)]
	if rc == nil {
		return
	}
	if snap := rc.snapshots[clientID]; snap != nil {
		snap.dirty = true
		snap.gen++
	}
}

func (a *Aggregator) evictClient(tenantID, clientID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	prefix := tenantID + "/"
	var evicted []string
	for key, rc := range a.rounds {
		roundID, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		if rc.scope.includes(clientID) {
			delete(a.rounds, key)
			evicted = append(evicted, roundID)
		}
	}
	return evicted
}

func (a *Aggregator) notify(ctx context.Context, tenantID, roundID string) {
	if roundID == "" {
		return
	}
	if err := a.publisher.Publish(ctx, feed.Event{
		Type:     feed.EventProgressUpdated,
		TenantID: tenantID,
		RoundID:  roundID,
		At:       time.Now(),
	}); err != nil {
		a.logger.Warn("failed to publish progress update", "round_id", roundID, "error", err)
	}
}
