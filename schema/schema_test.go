package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTables() []Table {
	return []Table{
		{
			Name: "clubs",
			Columns: []Column{
				{Name: "id", PrimaryKey: true},
				{Name: "name"},
			},
			Relationships: []Relationship{
				{
					Name:          "teams",
					Kind:          OneToMany,
					LocalColumns:  []string{"id"},
					RemoteTable:   "teams",
					RemoteColumns: []string{"club_id"},
					Inverse:       "club",
				},
			},
		},
		{
			Name: "teams",
			Columns: []Column{
				{Name: "id", PrimaryKey: true},
				{Name: "club_id"},
				{Name: "name"},
			},
			Relationships: []Relationship{
				{
					Name:          "club",
					Kind:          ManyToOne,
					LocalColumns:  []string{"club_id"},
					RemoteTable:   "clubs",
					RemoteColumns: []string{"id"},
				},
				{
					Name:          "players",
					Kind:          OneToMany,
					LocalColumns:  []string{"id"},
					RemoteTable:   "players",
					RemoteColumns: []string{"team_id"},
				},
			},
		},
		{
			Name: "players",
			Columns: []Column{
				{Name: "id", PrimaryKey: true},
				{Name: "team_id"},
				{Name: "name"},
			},
			Relationships: []Relationship{
				{
					Name:                  "user_groups",
					Kind:                  ManyToMany,
					LocalColumns:          []string{"id"},
					RemoteTable:           "user_groups",
					RemoteColumns:         []string{"id"},
					JunctionTable:         "player_user_groups",
					JunctionLocalColumns:  []string{"player_id"},
					JunctionRemoteColumns: []string{"user_group_id"},
				},
			},
		},
		{
			Name: "user_groups",
			Columns: []Column{
				{Name: "id", PrimaryKey: true},
				{Name: "name"},
			},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("valid mapping builds", func(t *testing.T) {
		reg, err := NewRegistry(testTables()...)
		require.NoError(t, err)
		require.NotNil(t, reg)
	})

	t.Run("rejects duplicate tables", func(t *testing.T) {
		tables := testTables()
		tables = append(tables, Table{Name: "clubs"})
		_, err := NewRegistry(tables...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate table")
	})

	t.Run("rejects unknown remote table", func(t *testing.T) {
		_, err := NewRegistry(Table{
			Name:    "clubs",
			Columns: []Column{{Name: "id", PrimaryKey: true}},
			Relationships: []Relationship{
				{Name: "teams", Kind: OneToMany, LocalColumns: []string{"id"}, RemoteTable: "teams", RemoteColumns: []string{"club_id"}},
			},
		})
		require.ErrorIs(t, err, ErrUnknownTable)
	})

	t.Run("rejects undeclared inverse", func(t *testing.T) {
		tables := testTables()
		tables[0].Relationships[0].Inverse = "nonexistent"
		_, err := NewRegistry(tables...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inverse")
	})

	t.Run("rejects junction table on one-to-many", func(t *testing.T) {
		tables := testTables()
		tables[0].Relationships[0].JunctionTable = "junk"
		_, err := NewRegistry(tables...)
		require.Error(t, err)
	})

	t.Run("many-to-many requires junction columns", func(t *testing.T) {
		tables := testTables()
		tables[2].Relationships[0].JunctionLocalColumns = nil
		_, err := NewRegistry(tables...)
		require.Error(t, err)
	})
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(testTables()...)
	require.NoError(t, err)

	t.Run("resolves relationship attribute", func(t *testing.T) {
		rel, err := reg.Resolve("clubs", "teams")
		require.NoError(t, err)
		assert.Equal(t, OneToMany, rel.Kind)
		assert.Equal(t, "teams", rel.RemoteTable)
		assert.Equal(t, "club_id", rel.RemoteColumn())
		assert.Equal(t, "id", rel.LocalColumn())
	})

	t.Run("plain column is not a relationship", func(t *testing.T) {
		_, err := reg.Resolve("clubs", "name")
		require.ErrorIs(t, err, ErrNotARelationship)
	})

	t.Run("unknown attribute is not a relationship", func(t *testing.T) {
		_, err := reg.Resolve("clubs", "sponsors")
		require.ErrorIs(t, err, ErrNotARelationship)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := reg.Resolve("stadiums", "teams")
		require.ErrorIs(t, err, ErrUnknownTable)
	})
}

func TestRelationshipRemoteColumn(t *testing.T) {
	t.Run("many-to-many uses junction parent-side column", func(t *testing.T) {
		reg, err := NewRegistry(testTables()...)
		require.NoError(t, err)
		rel, err := reg.Resolve("players", "user_groups")
		require.NoError(t, err)
		// The grouping key is the junction column pointing back at players,
		// not the column pointing at user_groups.
		assert.Equal(t, "player_id", rel.RemoteColumn())
	})
}

func TestDefaultAttributeName(t *testing.T) {
	tests := []struct {
		name     string
		rel      Relationship
		expected string
	}{
		{"one-to-many pluralizes", Relationship{Kind: OneToMany, RemoteTable: "team"}, "teams"},
		{"many-to-many pluralizes", Relationship{Kind: ManyToMany, RemoteTable: "user_group"}, "user_groups"},
		{"many-to-one singularizes", Relationship{Kind: ManyToOne, RemoteTable: "clubs"}, "club"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultAttributeName(tt.rel))
		})
	}
}

func TestRelationshipKindString(t *testing.T) {
	assert.Equal(t, "one_to_many", OneToMany.String())
	assert.Equal(t, "many_to_one", ManyToOne.String())
	assert.Equal(t, "many_to_many", ManyToMany.String())
	assert.Equal(t, "unknown", RelationshipKind(99).String())
}

func TestErrorIsWiring(t *testing.T) {
	reg, err := NewRegistry(testTables()...)
	require.NoError(t, err)
	_, err = reg.Resolve("teams", "name")
	require.True(t, errors.Is(err, ErrNotARelationship))
}
