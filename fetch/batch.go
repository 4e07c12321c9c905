// Package fetch implements batch relationship prefetching: given a set of
// already-loaded entities and one or more relationship attribute paths, it
// retrieves all related rows in one query per relationship hop and
// populates the in-memory entities as if they had been eagerly loaded.
package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"relfetch/orm"
	"relfetch/schema"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// backrefsSpec marks a path so the inverse relationship on fetched
// children is force-populated too.
type backrefsSpec struct {
	spec any
}

// WithBackrefs wraps a path specifier so that the backref relations are
// eagerly set on the fetched related entities.
func WithBackrefs(spec any) any {
	return backrefsSpec{spec: spec}
}

// compositeSpec bundles paths that must collapse into one physical query.
type compositeSpec struct {
	specs []any
}

// Composite wraps several path specifiers, which must all resolve to the
// same related entity type, so they share one query.
func Composite(specs ...any) any {
	return compositeSpec{specs: specs}
}

// BatchFetch fetches the given relationship attribute paths for a
// collection of entities of the same mapped type, one query per
// relationship hop, and populates the results in place.
//
// Path specifiers are either dotted strings ("teams.players.user_groups"),
// typed schema.Attr handles, or the WithBackrefs / Composite wrappers.
// Specifiers are processed independently and in order: a dotted path's
// shallower hops must be requested (or otherwise loaded) before deeper
// ones. An empty entity collection issues no queries.
func BatchFetch(ctx context.Context, session *orm.Session, entities []*orm.Entity, specs ...any) error {
	if len(entities) == 0 {
		return nil
	}

	coordinator := &fetchingCoordinator{
		session:  session,
		entities: entities,
		parent:   entities[0].Table(),
		logger: slog.Default().With(
			slog.String("fetch_id", uuid.NewString()),
		),
	}

	ctx, span := startFetchSpan(ctx, "fetch.batch",
		attribute.String("db.table", coordinator.parent.Name),
		attribute.Int("fetch.entity_count", len(entities)),
		attribute.Int("fetch.path_count", len(specs)),
	)
	var err error
	defer func() { finishFetchSpan(span, err) }()

	for _, spec := range specs {
		if err = coordinator.run(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// fetchingCoordinator resolves each path specifier into a fetcher and
// drives fetch-then-populate.
type fetchingCoordinator struct {
	session  *orm.Session
	entities []*orm.Entity
	parent   *schema.Table
	logger   *slog.Logger
}

func (c *fetchingCoordinator) run(ctx context.Context, spec any) error {
	populateBackrefs := false
	if wrapped, ok := spec.(backrefsSpec); ok {
		spec = wrapped.spec
		populateBackrefs = true
	}

	fetcher, err := c.buildFetcher(spec, populateBackrefs)
	if err != nil {
		return err
	}

	if err := fetcher.Fetch(ctx); err != nil {
		return err
	}
	if err := fetcher.Populate(ctx); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "path populated", slog.Any("spec", spec))
	return nil
}

func (c *fetchingCoordinator) buildFetcher(spec any, populateBackrefs bool) (Fetcher, error) {
	switch sp := spec.(type) {
	case compositeSpec:
		siblings := make([]sibling, 0, len(sp.specs))
		for _, sub := range sp.specs {
			subBackrefs := populateBackrefs
			if wrapped, ok := sub.(backrefsSpec); ok {
				sub = wrapped.spec
				subBackrefs = true
			}
			path, err := parsePath(c.session, c.entities, c.parent, sub, subBackrefs)
			if err != nil {
				return nil, err
			}
			f, ok := path.fetcher().(sibling)
			if !ok {
				return nil, fmt.Errorf("%w: path %v cannot be merged", ErrIncompatibleFetcher, sub)
			}
			siblings = append(siblings, f)
		}
		return newCompositeFetcher(siblings...)
	case string, schema.Attr:
		path, err := parsePath(c.session, c.entities, c.parent, sp, populateBackrefs)
		if err != nil {
			return nil, err
		}
		return path.fetcher(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPathSpec, spec)
	}
}
