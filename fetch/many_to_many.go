package fetch

import (
	"context"

	"relfetch/internal/sqlutil"
	"relfetch/planner"

	sq "github.com/Masterminds/squirrel"
)

// manyToManyFetcher handles relationships joined through an association
// table. Rows come back paired with the association row's parent-side key,
// and grouping uses that key directly; one association row yields one
// entry, so duplicate association rows are preserved.
type manyToManyFetcher struct {
	baseFetcher
}

func newManyToManyFetcher(path *Path) *manyToManyFetcher {
	return &manyToManyFetcher{baseFetcher: newBaseFetcher(path)}
}

// Condition constrains the association table's parent-side key column,
// qualified because the query joins two tables.
func (f *manyToManyFetcher) Condition() sq.Sqlizer {
	rel := f.path.rel
	column := sqlutil.QualifyColumn(rel.JunctionTable, rel.JunctionLocalColumns[0])
	return sq.Eq{column: f.localValues()}
}

func (f *manyToManyFetcher) Fetch(ctx context.Context) error {
	values := f.localValues()
	if len(values) == 0 {
		return nil
	}
	plan, err := planner.JunctionRelated(f.path.related, f.path.rel, f.Condition())
	if err != nil {
		return err
	}
	relation := f.path.rel.Kind.String()
	fetchMetrics().RecordQuery(ctx, relation, len(values))
	keyed, err := f.path.session.QueryKeyed(ctx, f.path.related, plan)
	if err != nil {
		return err
	}
	fetchMetrics().RecordResultRows(ctx, relation, len(keyed))
	for _, kv := range keyed {
		if kv.ParentKey == nil {
			continue
		}
		f.addToGroup(keyOf(kv.ParentKey), kv.ParentKey, kv.Entity)
	}
	return nil
}

func (f *manyToManyFetcher) Populate(ctx context.Context) error {
	return f.populateToMany(ctx)
}
