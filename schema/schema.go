// Package schema holds the mapping metadata consumed by batch fetching:
// tables, columns and relationship descriptors, organised in a registry
// keyed by (table, attribute name). The registry is configured explicitly
// by the caller; no runtime reflection or database introspection happens
// here beyond what the descriptors themselves record.
package schema

import (
	"errors"
	"fmt"
)

// ErrNotARelationship indicates a requested attribute does not describe an
// entity relationship (for example, it names a plain column).
var ErrNotARelationship = errors.New("not a relationship")

// ErrUnknownTable indicates a referenced table is missing from the registry.
var ErrUnknownTable = errors.New("unknown table")

// RelationshipKind classifies a relationship by where its join keys live.
type RelationshipKind int

const (
	OneToMany RelationshipKind = iota
	ManyToOne
	ManyToMany
)

func (k RelationshipKind) String() string {
	switch k {
	case OneToMany:
		return "one_to_many"
	case ManyToOne:
		return "many_to_one"
	case ManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// Column represents a mapped table column.
type Column struct {
	Name       string `mapstructure:"name"`
	PrimaryKey bool   `mapstructure:"primary_key"`
}

// Relationship is the immutable metadata for one relationship attribute.
// For one-to-many and many-to-one the local/remote column pair describes
// the foreign key join. For many-to-many the junction table carries both
// join conditions: JunctionLocalColumns point back at the owning table and
// JunctionRemoteColumns point at the related table.
type Relationship struct {
	Name          string           `mapstructure:"name"`
	Kind          RelationshipKind `mapstructure:"-"`
	LocalColumns  []string         `mapstructure:"local_columns"`
	RemoteTable   string           `mapstructure:"remote_table"`
	RemoteColumns []string         `mapstructure:"remote_columns"`

	JunctionTable         string   `mapstructure:"junction_table"`
	JunctionLocalColumns  []string `mapstructure:"junction_local_columns"`
	JunctionRemoteColumns []string `mapstructure:"junction_remote_columns"`

	// Inverse names the relationship attribute on the remote type that
	// points back at this one. Empty when no inverse is declared.
	Inverse string `mapstructure:"inverse"`
}

// LocalColumn returns the single local join column.
func (r Relationship) LocalColumn() string {
	if len(r.LocalColumns) == 0 {
		return ""
	}
	return r.LocalColumns[0]
}

// RemoteColumn returns the single remote join column. For many-to-many this
// is the junction column whose foreign key targets the owning table, which
// distinguishes the "back to parent" key from the "to related entity" key.
func (r Relationship) RemoteColumn() string {
	if r.Kind == ManyToMany {
		if len(r.JunctionLocalColumns) == 0 {
			return ""
		}
		return r.JunctionLocalColumns[0]
	}
	if len(r.RemoteColumns) == 0 {
		return ""
	}
	return r.RemoteColumns[0]
}

// ToMany reports whether the relationship populates a collection attribute.
func (r Relationship) ToMany() bool {
	return r.Kind != ManyToOne
}

// Table represents one mapped type.
type Table struct {
	Name          string         `mapstructure:"name"`
	Columns       []Column       `mapstructure:"columns"`
	Relationships []Relationship `mapstructure:"relationships"`
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// PrimaryKeyColumns returns the primary key columns in declaration order.
func (t Table) PrimaryKeyColumns() []Column {
	var pks []Column
	for _, col := range t.Columns {
		if col.PrimaryKey {
			pks = append(pks, col)
		}
	}
	return pks
}

// ColumnNames returns all column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Attr is a typed handle for a single-hop relationship attribute,
// an alternative to naming the attribute with a dotted string.
type Attr struct {
	Table string
	Name  string
}

// Registry resolves relationship descriptors by (table, attribute name).
type Registry struct {
	tables map[string]*Table
}

// NewRegistry builds a registry from explicit table mappings. Relationship
// names left empty are filled in from naming defaults, and every remote or
// junction table reference is validated against the registered set.
func NewRegistry(tables ...Table) (*Registry, error) {
	reg := &Registry{tables: make(map[string]*Table, len(tables))}
	for i := range tables {
		table := tables[i]
		if table.Name == "" {
			return nil, fmt.Errorf("table %d has no name", i)
		}
		if _, exists := reg.tables[table.Name]; exists {
			return nil, fmt.Errorf("duplicate table mapping %q", table.Name)
		}
		for j := range table.Relationships {
			rel := &table.Relationships[j]
			if rel.Name == "" {
				rel.Name = DefaultAttributeName(*rel)
			}
		}
		reg.tables[table.Name] = &table
	}

	for _, table := range reg.tables {
		for _, rel := range table.Relationships {
			if err := reg.validateRelationship(table, rel); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func (reg *Registry) validateRelationship(table *Table, rel Relationship) error {
	remote, ok := reg.tables[rel.RemoteTable]
	if !ok {
		return fmt.Errorf("%w: relationship %s.%s targets %q", ErrUnknownTable, table.Name, rel.Name, rel.RemoteTable)
	}
	if len(rel.LocalColumns) != 1 || len(rel.RemoteColumns) != 1 {
		return fmt.Errorf("relationship %s.%s: exactly one local and one remote column required", table.Name, rel.Name)
	}
	if _, ok := table.Column(rel.LocalColumn()); !ok {
		return fmt.Errorf("relationship %s.%s: local column %q not mapped", table.Name, rel.Name, rel.LocalColumn())
	}
	if _, ok := remote.Column(rel.RemoteColumns[0]); rel.Kind != ManyToMany && !ok {
		return fmt.Errorf("relationship %s.%s: remote column %q not mapped on %s", table.Name, rel.Name, rel.RemoteColumns[0], remote.Name)
	}
	if rel.Kind == ManyToMany {
		if rel.JunctionTable == "" || len(rel.JunctionLocalColumns) != 1 || len(rel.JunctionRemoteColumns) != 1 {
			return fmt.Errorf("relationship %s.%s: many-to-many requires a junction table and one column per side", table.Name, rel.Name)
		}
	} else if rel.JunctionTable != "" {
		return fmt.Errorf("relationship %s.%s: junction table set on non many-to-many relationship", table.Name, rel.Name)
	}
	if rel.Inverse != "" {
		found := false
		for _, inv := range remote.Relationships {
			if inv.Name == rel.Inverse {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("relationship %s.%s: inverse %q not declared on %s", table.Name, rel.Name, rel.Inverse, remote.Name)
		}
	}
	return nil
}

// Table returns the mapping for a table name.
func (reg *Registry) Table(name string) (*Table, error) {
	table, ok := reg.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return table, nil
}

// Resolve returns the relationship descriptor for an attribute of a mapped
// type. It fails with ErrNotARelationship when the attribute names a plain
// column or nothing at all.
func (reg *Registry) Resolve(tableName, attr string) (Relationship, error) {
	table, err := reg.Table(tableName)
	if err != nil {
		return Relationship{}, err
	}
	for _, rel := range table.Relationships {
		if rel.Name == attr {
			return rel, nil
		}
	}
	if _, ok := table.Column(attr); ok {
		return Relationship{}, fmt.Errorf("%w: %s.%s is a column", ErrNotARelationship, tableName, attr)
	}
	return Relationship{}, fmt.Errorf("%w: %s.%s", ErrNotARelationship, tableName, attr)
}
