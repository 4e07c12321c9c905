package fetch

import (
	"context"

	"relfetch/orm"
)

// manyToOneFetcher handles relationships whose foreign key lives on the
// source side: each parent resolves to at most one related row. The slot
// per key is overwritten on duplicates; with intact referential integrity
// a key matches one row, so arrival order deciding ties is acceptable.
type manyToOneFetcher struct {
	baseFetcher
	slots map[string]*orm.Entity
}

func newManyToOneFetcher(path *Path) *manyToOneFetcher {
	return &manyToOneFetcher{
		baseFetcher: newBaseFetcher(path),
		slots:       make(map[string]*orm.Entity),
	}
}

func (f *manyToOneFetcher) appendEntity(entity *orm.Entity) {
	v := entity.Value(f.remoteColumn())
	if v == nil {
		return
	}
	f.slots[keyOf(v)] = entity
}

func (f *manyToOneFetcher) Fetch(ctx context.Context) error {
	entities, err := f.fetchRelated(ctx)
	if err != nil {
		return err
	}
	for _, entity := range entities {
		f.appendEntity(entity)
	}
	return nil
}

// Populate assigns each parent its single related entity, nil when no row
// matched. Backref population is not meaningful in this direction and is
// skipped.
func (f *manyToOneFetcher) Populate(ctx context.Context) error {
	localColumn := f.path.rel.LocalColumn()
	for _, parent := range f.path.entities {
		parent.SetLoadedOne(f.path.rel.Name, f.slots[keyOf(parent.Value(localColumn))])
	}
	return nil
}
