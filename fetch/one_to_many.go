package fetch

import "context"

// oneToManyFetcher handles relationships whose foreign key lives on the
// related table. Grouping key: the remote FK column value pointing back at
// the parent.
type oneToManyFetcher struct {
	baseFetcher
}

func newOneToManyFetcher(path *Path) *oneToManyFetcher {
	return &oneToManyFetcher{baseFetcher: newBaseFetcher(path)}
}

func (f *oneToManyFetcher) Fetch(ctx context.Context) error {
	entities, err := f.fetchRelated(ctx)
	if err != nil {
		return err
	}
	for _, entity := range entities {
		f.appendEntity(entity)
	}
	return nil
}

func (f *oneToManyFetcher) Populate(ctx context.Context) error {
	return f.populateToMany(ctx)
}
