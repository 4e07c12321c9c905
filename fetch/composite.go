package fetch

import (
	"context"
	"fmt"

	"relfetch/planner"

	sq "github.com/Masterminds/squirrel"
)

// CompositeFetcher merges sibling fetchers that target the same related
// table into one physical query: the union of each sibling's condition is
// fetched once, then every returned row is offered to each sibling whose
// remote column identifies it. Grouping and population stay per sibling.
type CompositeFetcher struct {
	fetchers []sibling
}

func newCompositeFetcher(fetchers ...sibling) (*CompositeFetcher, error) {
	if len(fetchers) == 0 {
		return nil, fmt.Errorf("%w: composite requires at least one path", ErrIncompatibleFetcher)
	}
	related := fetchers[0].fetchPath().related
	for _, f := range fetchers {
		if f.fetchPath().related.Name != related.Name {
			return nil, fmt.Errorf("%w: %s vs %s", ErrIncompatibleFetcher,
				related.Name, f.fetchPath().related.Name)
		}
		// An association-table fetcher groups by a junction column that is
		// absent from the related rows, so it cannot share the query.
		if _, ok := f.(*manyToManyFetcher); ok {
			return nil, fmt.Errorf("%w: many-to-many paths cannot be merged", ErrIncompatibleFetcher)
		}
	}
	return &CompositeFetcher{fetchers: fetchers}, nil
}

// Condition is the disjunction of every sibling's own condition.
func (c *CompositeFetcher) Condition() sq.Sqlizer {
	conditions := make(sq.Or, len(c.fetchers))
	for i, f := range c.fetchers {
		conditions[i] = f.Condition()
	}
	return conditions
}

// Fetch runs the one combined query and routes each row to the siblings it
// belongs to.
func (c *CompositeFetcher) Fetch(ctx context.Context) error {
	keys := 0
	for _, f := range c.fetchers {
		keys += len(f.localValues())
	}
	if keys == 0 {
		return nil
	}

	path := c.fetchers[0].fetchPath()
	plan, err := planner.Related(path.related, c.Condition())
	if err != nil {
		return err
	}
	fetchMetrics().RecordQuery(ctx, "composite", keys)
	entities, err := path.session.Query(ctx, path.related, plan)
	if err != nil {
		return err
	}
	fetchMetrics().RecordResultRows(ctx, "composite", len(entities))

	for _, entity := range entities {
		for _, f := range c.fetchers {
			if entity.Value(f.remoteColumn()) != nil {
				f.appendEntity(entity)
			}
		}
	}
	return nil
}

// Populate delegates to each sibling in order.
func (c *CompositeFetcher) Populate(ctx context.Context) error {
	for _, f := range c.fetchers {
		if err := f.Populate(ctx); err != nil {
			return err
		}
	}
	return nil
}
