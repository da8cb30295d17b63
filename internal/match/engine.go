package match

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaulta/internal/crypto"
	"vaulta/internal/metrics"
)

// Storage is the persistence surface the engine needs. The store
// package satisfies it.
type Storage interface {
	// PendingEntries returns entries whose identifier has not yet been
	// consumed by a run.
	PendingEntries(ctx context.Context) ([]*Entry, error)
	// AllEntries returns every escrow entry, pending or not.
	AllEntries(ctx context.Context) ([]*Entry, error)
	// MarkSeen marks entries as seen and clears their identifiers.
	MarkSeen(ctx context.Context, entryIDs []string) error
	// MarkMatchFound flags the reports behind the given entries.
	MarkMatchFound(ctx context.Context, reportIDs []string) error
}

// Handler receives completed match groups for delivery and owner
// notification.
type Handler interface {
	HandleMatch(ctx context.Context, g *Group) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, g *Group) error

// HandleMatch calls f.
func (f HandlerFunc) HandleMatch(ctx context.Context, g *Group) error { return f(ctx, g) }

// Group is a set of entries from at least two distinct owners that
// decrypted under the same identifier. The identifier itself is not
// carried on the group; it is consumed during the run.
type Group struct {
	Entries []*Entry
	// Texts holds the decrypted record text per entry ID, available
	// only for the duration of match handling.
	Texts map[string]string
}

// Owners returns the distinct owner IDs in the group, sorted.
func (g *Group) Owners() []string {
	set := map[string]struct{}{}
	for _, e := range g.Entries {
		set[e.OwnerID] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Engine runs matching passes over the escrow.
type Engine struct {
	store   Storage
	cipher  *crypto.Cipher
	handler Handler
	log     *zap.Logger
	metrics *metrics.Collector
	workers int
}

// NewEngine assembles a matching engine. handler may be nil, in which
// case matches are recorded but not delivered.
func NewEngine(store Storage, cipher *crypto.Cipher, handler Handler, log *zap.Logger, m *metrics.Collector, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		store:   store,
		cipher:  cipher,
		handler: handler,
		log:     log,
		metrics: m,
		workers: workers,
	}
}

// Run performs one matching pass:
//
//  1. collect entries whose identifier is still pending,
//  2. trial-decrypt every escrow entry under each pending identifier,
//  3. for identifiers hitting two or more distinct owners, flag the
//     reports and hand the group to the handler,
//  4. consume the pending identifiers regardless of outcome.
//
// Trial decryption is CPU-bound (PBKDF2), so the pass fans out over a
// bounded worker group.
func (e *Engine) Run(ctx context.Context) (found int, err error) {
	pending, err := e.store.PendingEntries(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		e.log.Debug("matching pass: nothing pending")
		return 0, nil
	}
	all, err := e.store.AllEntries(ctx)
	if err != nil {
		return 0, err
	}

	// Distinct pending identifiers; duplicates collapse into one trial.
	identifiers := map[string]struct{}{}
	for _, p := range pending {
		if p.Identifier != "" {
			identifiers[p.Identifier] = struct{}{}
		}
	}
	e.log.Info("matching pass",
		zap.Int("pending_entries", len(pending)),
		zap.Int("identifiers", len(identifiers)),
		zap.Int("escrow_size", len(all)))

	var mu sync.Mutex
	var groups []*Group

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for ident := range identifiers {
		ident := ident
		g.Go(func() error {
			grp, err := e.trial(gctx, ident, all)
			if err != nil {
				return err
			}
			if grp != nil {
				mu.Lock()
				groups = append(groups, grp)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for _, grp := range groups {
		var reportIDs, entryIDs []string
		for _, en := range grp.Entries {
			reportIDs = append(reportIDs, en.ReportID)
			entryIDs = append(entryIDs, en.ID)
		}
		if err := e.store.MarkMatchFound(ctx, reportIDs); err != nil {
			return found, err
		}
		if err := e.store.MarkSeen(ctx, entryIDs); err != nil {
			return found, err
		}
		e.metrics.MatchFound()
		e.log.Info("match found",
			zap.Int("entries", len(grp.Entries)),
			zap.Int("owners", len(grp.Owners())))
		if e.handler != nil {
			if err := e.handler.HandleMatch(ctx, grp); err != nil {
				// Delivery failure must not lose the match flag; the
				// group is already persisted as matched.
				e.metrics.RecordError(err.Error())
				e.log.Error("match handling failed", zap.Error(err))
			}
		}
		found++
	}

	// Consume every pending identifier, matched or not.
	var consumed []string
	for _, p := range pending {
		consumed = append(consumed, p.ID)
	}
	if err := e.store.MarkSeen(ctx, consumed); err != nil {
		return found, err
	}
	return found, nil
}

// trial decrypts every entry under one identifier and builds a group if
// entries from two or more distinct owners hit.
func (e *Engine) trial(ctx context.Context, identifier string, all []*Entry) (*Group, error) {
	grp := &Group{Texts: map[string]string{}}
	for _, en := range all {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		text, ok, err := en.Try(e.cipher, identifier)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		grp.Entries = append(grp.Entries, en)
		grp.Texts[en.ID] = text
	}
	if len(grp.Owners()) < 2 {
		return nil, nil
	}
	return grp, nil
}
