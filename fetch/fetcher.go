package fetch

import (
	"context"
	"fmt"

	"relfetch/internal/sqlutil"
	"relfetch/orm"
	"relfetch/planner"

	sq "github.com/Masterminds/squirrel"
)

// Fetcher is the one-shot protocol shared by every fetch strategy:
// Condition describes the batched predicate, Fetch issues the single query
// and accumulates rows grouped by parent key, Populate writes the grouped
// results onto the parent entities. Fetch then Populate are each called
// exactly once; a fetcher is not reusable afterwards.
type Fetcher interface {
	Condition() sq.Sqlizer
	Fetch(ctx context.Context) error
	Populate(ctx context.Context) error
}

// sibling is the extended surface CompositeFetcher drives: access to the
// underlying path, the column identifying a row's parent, and per-row
// accumulation.
type sibling interface {
	Fetcher
	fetchPath() *Path
	remoteColumn() string
	localValues() []any
	appendEntity(entity *orm.Entity)
}

// baseFetcher accumulates related entities grouped by the key value that
// ties each row back to its parent(s). Key order is tracked so later
// queries bind arguments deterministically.
type baseFetcher struct {
	path     *Path
	groups   map[string][]*orm.Entity
	rawKeys  map[string]any
	keyOrder []string
}

func newBaseFetcher(path *Path) baseFetcher {
	return baseFetcher{
		path:    path,
		groups:  make(map[string][]*orm.Entity),
		rawKeys: make(map[string]any),
	}
}

func (f *baseFetcher) fetchPath() *Path {
	return f.path
}

func (f *baseFetcher) remoteColumn() string {
	return f.path.rel.RemoteColumn()
}

// localValues returns the distinct, non-nil local join key values across
// the path's entities, in first-seen order.
func (f *baseFetcher) localValues() []any {
	localColumn := f.path.rel.LocalColumn()
	seen := make(map[string]struct{}, len(f.path.entities))
	var values []any
	for _, entity := range f.path.entities {
		v := entity.Value(localColumn)
		if v == nil {
			continue
		}
		k := keyOf(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		values = append(values, v)
	}
	return values
}

// Condition is the batching predicate: remote join column IN the set of
// local key values.
func (f *baseFetcher) Condition() sq.Sqlizer {
	return sq.Eq{sqlutil.QuoteIdentifier(f.remoteColumn()): f.localValues()}
}

func (f *baseFetcher) addToGroup(key string, raw any, entity *orm.Entity) {
	if _, ok := f.rawKeys[key]; !ok {
		f.rawKeys[key] = raw
		f.keyOrder = append(f.keyOrder, key)
	}
	f.groups[key] = append(f.groups[key], entity)
}

// appendEntity groups a related row under its remote column value,
// appending (to-many semantics). Rows with a nil key belong to no parent.
func (f *baseFetcher) appendEntity(entity *orm.Entity) {
	v := entity.Value(f.remoteColumn())
	if v == nil {
		return
	}
	f.addToGroup(keyOf(v), v, entity)
}

// fetchRelated issues the single related-row query for this fetcher's
// condition. No local key values means no query at all.
func (f *baseFetcher) fetchRelated(ctx context.Context) ([]*orm.Entity, error) {
	values := f.localValues()
	if len(values) == 0 {
		return nil, nil
	}
	plan, err := planner.Related(f.path.related, f.Condition())
	if err != nil {
		return nil, err
	}
	relation := f.path.rel.Kind.String()
	fetchMetrics().RecordQuery(ctx, relation, len(values))
	entities, err := f.path.session.Query(ctx, f.path.related, plan)
	if err != nil {
		return nil, err
	}
	fetchMetrics().RecordResultRows(ctx, relation, len(entities))
	return entities, nil
}

// populateToMany assigns each parent its grouped collection, empty when no
// related rows matched, and marks the attribute loaded.
func (f *baseFetcher) populateToMany(ctx context.Context) error {
	localColumn := f.path.rel.LocalColumn()
	for _, parent := range f.path.entities {
		parent.SetLoadedMany(f.path.rel.Name, f.groups[keyOf(parent.Value(localColumn))])
	}
	if f.path.backrefs {
		return f.populateBackrefs(ctx)
	}
	return nil
}

// populateBackrefs eagerly sets the inverse relationship on every fetched
// related entity: the parents are batch-loaded with one primary-key query
// and each child receives the parents whose key matched it, assigned
// according to the inverse attribute's own cardinality. The local join
// column is the parent primary key for the to-many shapes this runs on.
// No-op when the relationship declares no inverse.
func (f *baseFetcher) populateBackrefs(ctx context.Context) error {
	inverse := f.path.rel.Inverse
	if inverse == "" || len(f.keyOrder) == 0 {
		return nil
	}
	inverseToMany := false
	for _, rel := range f.path.related.Relationships {
		if rel.Name == inverse {
			inverseToMany = rel.ToMany()
			break
		}
	}

	keys := make([]any, len(f.keyOrder))
	for i, k := range f.keyOrder {
		keys[i] = f.rawKeys[k]
	}
	fetchMetrics().RecordQuery(ctx, "backref", len(keys))
	parents, err := f.path.session.GetByPrimaryKeys(ctx, f.path.parent, keys)
	if err != nil {
		return fmt.Errorf("failed to load backref parents for %s.%s: %w", f.path.parent.Name, f.path.rel.Name, err)
	}

	parentsByKey := make(map[string]*orm.Entity, len(parents))
	for _, parent := range parents {
		pk, err := parent.PrimaryKeyValue()
		if err != nil {
			return err
		}
		parentsByKey[keyOf(pk)] = parent
	}

	childParents := make(map[*orm.Entity][]*orm.Entity)
	var childOrder []*orm.Entity
	for _, k := range f.keyOrder {
		parent, ok := parentsByKey[k]
		if !ok {
			continue
		}
		for _, child := range f.groups[k] {
			if _, seen := childParents[child]; !seen {
				childOrder = append(childOrder, child)
			}
			childParents[child] = append(childParents[child], parent)
		}
	}
	for _, child := range childOrder {
		if inverseToMany {
			child.SetLoadedMany(inverse, childParents[child])
		} else {
			child.SetLoadedOne(inverse, childParents[child][0])
		}
	}
	return nil
}
