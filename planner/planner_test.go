package planner

import (
	"testing"

	"relfetch/schema"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var teamsTable = schema.Table{
	Name: "teams",
	Columns: []schema.Column{
		{Name: "id", PrimaryKey: true},
		{Name: "club_id"},
		{Name: "name"},
	},
}

var groupsTable = schema.Table{
	Name: "user_groups",
	Columns: []schema.Column{
		{Name: "id", PrimaryKey: true},
		{Name: "name"},
	},
}

func TestRelated(t *testing.T) {
	t.Run("selects all mapped columns with IN condition", func(t *testing.T) {
		plan, err := Related(&teamsTable, sq.Eq{"`club_id`": []any{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT `id`, `club_id`, `name` FROM `teams` WHERE `club_id` IN (?,?,?)",
			plan.SQL,
		)
		assert.Equal(t, []any{1, 2, 3}, plan.Args)
	})

	t.Run("disjunction condition", func(t *testing.T) {
		cond := sq.Or{
			sq.Eq{"`club_id`": []any{1}},
			sq.Eq{"`id`": []any{7}},
		}
		plan, err := Related(&teamsTable, cond)
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT `id`, `club_id`, `name` FROM `teams` WHERE (`club_id` IN (?) OR `id` IN (?))",
			plan.SQL,
		)
		assert.Equal(t, []any{1, 7}, plan.Args)
	})
}

func TestJunctionRelated(t *testing.T) {
	rel := schema.Relationship{
		Name:                  "user_groups",
		Kind:                  schema.ManyToMany,
		LocalColumns:          []string{"id"},
		RemoteTable:           "user_groups",
		RemoteColumns:         []string{"id"},
		JunctionTable:         "player_user_groups",
		JunctionLocalColumns:  []string{"player_id"},
		JunctionRemoteColumns: []string{"user_group_id"},
	}

	t.Run("joins through the association table and selects parent key", func(t *testing.T) {
		cond := sq.Eq{"`player_user_groups`.`player_id`": []any{10, 20}}
		plan, err := JunctionRelated(&groupsTable, rel, cond)
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT `user_groups`.`id`, `user_groups`.`name`, `player_user_groups`.`player_id` AS __batch_parent "+
				"FROM `user_groups` "+
				"INNER JOIN `player_user_groups` ON `player_user_groups`.`user_group_id` = `user_groups`.`id` "+
				"WHERE `player_user_groups`.`player_id` IN (?,?)",
			plan.SQL,
		)
		assert.Equal(t, []any{10, 20}, plan.Args)
	})

	t.Run("requires a junction table", func(t *testing.T) {
		bare := rel
		bare.JunctionTable = ""
		_, err := JunctionRelated(&groupsTable, bare, sq.Eq{"`x`": 1})
		require.Error(t, err)
	})
}

func TestRoots(t *testing.T) {
	t.Run("selects all mapped columns with a limit", func(t *testing.T) {
		plan, err := Roots(&teamsTable, 50)
		require.NoError(t, err)
		assert.Equal(t, "SELECT `id`, `club_id`, `name` FROM `teams` LIMIT 50", plan.SQL)
		assert.Empty(t, plan.Args)
	})

	t.Run("zero limit means no limit", func(t *testing.T) {
		plan, err := Roots(&teamsTable, 0)
		require.NoError(t, err)
		assert.Equal(t, "SELECT `id`, `club_id`, `name` FROM `teams`", plan.SQL)
	})
}

func TestByPrimaryKeys(t *testing.T) {
	t.Run("plans a primary key IN select", func(t *testing.T) {
		plan, err := ByPrimaryKeys(&teamsTable, []any{1, 2})
		require.NoError(t, err)
		assert.Equal(t, "SELECT `id`, `club_id`, `name` FROM `teams` WHERE `id` IN (?,?)", plan.SQL)
		assert.Equal(t, []any{1, 2}, plan.Args)
	})

	t.Run("fails without a primary key", func(t *testing.T) {
		table := schema.Table{Name: "notes", Columns: []schema.Column{{Name: "body"}}}
		_, err := ByPrimaryKeys(&table, []any{1})
		require.ErrorIs(t, err, ErrNoPrimaryKey)
	})

	t.Run("fails for composite primary keys", func(t *testing.T) {
		table := schema.Table{Name: "memberships", Columns: []schema.Column{
			{Name: "player_id", PrimaryKey: true},
			{Name: "group_id", PrimaryKey: true},
		}}
		_, err := ByPrimaryKeys(&table, []any{1})
		require.ErrorIs(t, err, ErrCompositePrimaryKey)
	})
}
