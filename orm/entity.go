// Package orm is the thin object layer batch fetching runs against: mapped
// entities with explicit loaded/unloaded relationship state, and a Session
// that executes planned queries and materializes rows. It deliberately stops
// short of a full ORM; there is no lazy loading, no identity map and no
// write path.
package orm

import (
	"fmt"

	"relfetch/schema"
)

// RelationState tracks whether a relationship attribute has been populated.
// Population is a state transition from Unloaded to Loaded, never a
// backdoor write.
type RelationState int

const (
	Unloaded RelationState = iota
	Loaded
)

// Relation is the loaded-state container backing one relationship attribute.
type Relation struct {
	state  RelationState
	toMany bool
	one    *Entity
	many   []*Entity
}

// State returns the relation's load state.
func (r *Relation) State() RelationState {
	if r == nil {
		return Unloaded
	}
	return r.state
}

// Entity is a materialized row of a mapped table. Scalar column values live
// in a value map; relationship attributes live in relation containers that
// start out unloaded.
type Entity struct {
	table  *schema.Table
	values map[string]any
	rels   map[string]*Relation
}

// NewEntity creates an entity of the given mapped type with the given
// column values.
func NewEntity(table *schema.Table, values map[string]any) *Entity {
	if values == nil {
		values = make(map[string]any)
	}
	return &Entity{
		table:  table,
		values: values,
		rels:   make(map[string]*Relation),
	}
}

// Table returns the entity's mapped type.
func (e *Entity) Table() *schema.Table {
	return e.table
}

// Value returns the scalar value of a column, or nil when unset.
func (e *Entity) Value(column string) any {
	return e.values[column]
}

// SetValue sets a scalar column value.
func (e *Entity) SetValue(column string, v any) {
	e.values[column] = v
}

// PrimaryKeyValue returns the entity's single-column primary key value.
func (e *Entity) PrimaryKeyValue() (any, error) {
	pkCols := e.table.PrimaryKeyColumns()
	if len(pkCols) == 0 {
		return nil, fmt.Errorf("table %s has no primary key", e.table.Name)
	}
	if len(pkCols) > 1 {
		return nil, fmt.Errorf("table %s has a composite primary key", e.table.Name)
	}
	return e.values[pkCols[0].Name], nil
}

func (e *Entity) relation(attr string) *Relation {
	rel, ok := e.rels[attr]
	if !ok {
		rel = &Relation{}
		e.rels[attr] = rel
	}
	return rel
}

// RelationLoaded reports whether a relationship attribute has been
// populated.
func (e *Entity) RelationLoaded(attr string) bool {
	return e.rels[attr].State() == Loaded
}

// SetLoadedMany populates a to-many relationship attribute and marks it
// loaded. A nil slice is stored as an empty collection.
func (e *Entity) SetLoadedMany(attr string, children []*Entity) {
	rel := e.relation(attr)
	if children == nil {
		children = []*Entity{}
	}
	rel.state = Loaded
	rel.toMany = true
	rel.many = children
	rel.one = nil
}

// SetLoadedOne populates a to-one relationship attribute and marks it
// loaded. A nil entity records the absence of a related row.
func (e *Entity) SetLoadedOne(attr string, child *Entity) {
	rel := e.relation(attr)
	rel.state = Loaded
	rel.toMany = false
	rel.one = child
	rel.many = nil
}

// Many returns the loaded collection for a to-many attribute. ok is false
// when the attribute is unloaded or was populated as to-one.
func (e *Entity) Many(attr string) (children []*Entity, ok bool) {
	rel := e.rels[attr]
	if rel.State() != Loaded || !rel.toMany {
		return nil, false
	}
	return rel.many, true
}

// One returns the loaded entity for a to-one attribute. ok is false when
// the attribute is unloaded or was populated as to-many. A loaded attribute
// with no related row yields (nil, true).
func (e *Entity) One(attr string) (child *Entity, ok bool) {
	rel := e.rels[attr]
	if rel.State() != Loaded || rel.toMany {
		return nil, false
	}
	return rel.one, true
}

// Export renders the entity as a plain map: scalar columns plus every
// loaded relationship, recursively. Entities already seen on the path are
// rendered without their relationships, so backref cycles terminate.
func (e *Entity) Export() map[string]any {
	return e.export(make(map[*Entity]bool))
}

func (e *Entity) export(seen map[*Entity]bool) map[string]any {
	out := make(map[string]any, len(e.values)+len(e.rels))
	for _, col := range e.table.Columns {
		if v, ok := e.values[col.Name]; ok {
			out[col.Name] = v
		}
	}
	if seen[e] {
		return out
	}
	seen[e] = true
	defer delete(seen, e)

	for attr, rel := range e.rels {
		if rel.State() != Loaded {
			continue
		}
		if rel.toMany {
			children := make([]map[string]any, len(rel.many))
			for i, child := range rel.many {
				children[i] = child.export(seen)
			}
			out[attr] = children
		} else if rel.one != nil {
			out[attr] = rel.one.export(seen)
		} else {
			out[attr] = nil
		}
	}
	return out
}
