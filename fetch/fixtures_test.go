package fetch

import (
	"testing"

	"relfetch/orm"
	"relfetch/schema"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// The club/team/player/user_group fixture covers every relationship shape:
// one-to-many (clubs.teams, teams.players), many-to-one (teams.club,
// teams.captain, players.team) and many-to-many (players.user_groups via
// player_user_groups).
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.NewRegistry(
		schema.Table{
			Name: "clubs",
			Columns: []schema.Column{
				{Name: "id", PrimaryKey: true},
				{Name: "name"},
			},
			Relationships: []schema.Relationship{
				{
					Name:          "teams",
					Kind:          schema.OneToMany,
					LocalColumns:  []string{"id"},
					RemoteTable:   "teams",
					RemoteColumns: []string{"club_id"},
					Inverse:       "club",
				},
			},
		},
		schema.Table{
			Name: "teams",
			Columns: []schema.Column{
				{Name: "id", PrimaryKey: true},
				{Name: "club_id"},
				{Name: "captain_id"},
				{Name: "name"},
			},
			Relationships: []schema.Relationship{
				{
					Name:          "club",
					Kind:          schema.ManyToOne,
					LocalColumns:  []string{"club_id"},
					RemoteTable:   "clubs",
					RemoteColumns: []string{"id"},
				},
				{
					Name:          "players",
					Kind:          schema.OneToMany,
					LocalColumns:  []string{"id"},
					RemoteTable:   "players",
					RemoteColumns: []string{"team_id"},
					Inverse:       "team",
				},
				{
					Name:          "captain",
					Kind:          schema.ManyToOne,
					LocalColumns:  []string{"captain_id"},
					RemoteTable:   "players",
					RemoteColumns: []string{"id"},
				},
			},
		},
		schema.Table{
			Name: "players",
			Columns: []schema.Column{
				{Name: "id", PrimaryKey: true},
				{Name: "team_id"},
				{Name: "name"},
			},
			Relationships: []schema.Relationship{
				{
					Name:          "team",
					Kind:          schema.ManyToOne,
					LocalColumns:  []string{"team_id"},
					RemoteTable:   "teams",
					RemoteColumns: []string{"id"},
				},
				{
					Name:                  "user_groups",
					Kind:                  schema.ManyToMany,
					LocalColumns:          []string{"id"},
					RemoteTable:           "user_groups",
					RemoteColumns:         []string{"id"},
					JunctionTable:         "player_user_groups",
					JunctionLocalColumns:  []string{"player_id"},
					JunctionRemoteColumns: []string{"user_group_id"},
					Inverse:               "players",
				},
			},
		},
		schema.Table{
			Name: "user_groups",
			Columns: []schema.Column{
				{Name: "id", PrimaryKey: true},
				{Name: "name"},
			},
			Relationships: []schema.Relationship{
				{
					Name:                  "players",
					Kind:                  schema.ManyToMany,
					LocalColumns:          []string{"id"},
					RemoteTable:           "players",
					RemoteColumns:         []string{"id"},
					JunctionTable:         "player_user_groups",
					JunctionLocalColumns:  []string{"user_group_id"},
					JunctionRemoteColumns: []string{"player_id"},
					Inverse:               "user_groups",
				},
			},
		},
	)
	require.NoError(t, err)
	return reg
}

func newFixtureSession(t *testing.T) (*orm.Session, sqlmock.Sqlmock, *schema.Registry) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	reg := testRegistry(t)
	return orm.NewSession(orm.NewStandardExecutor(db), reg, nil), mock, reg
}

func mustTable(t *testing.T, reg *schema.Registry, name string) *schema.Table {
	t.Helper()
	table, err := reg.Table(name)
	require.NoError(t, err)
	return table
}

func newClub(t *testing.T, reg *schema.Registry, id int64, name string) *orm.Entity {
	return orm.NewEntity(mustTable(t, reg, "clubs"), map[string]any{"id": id, "name": name})
}

func newTeam(t *testing.T, reg *schema.Registry, id int64, clubID, captainID any, name string) *orm.Entity {
	return orm.NewEntity(mustTable(t, reg, "teams"), map[string]any{
		"id": id, "club_id": clubID, "captain_id": captainID, "name": name,
	})
}

func newPlayer(t *testing.T, reg *schema.Registry, id int64, teamID any, name string) *orm.Entity {
	return orm.NewEntity(mustTable(t, reg, "players"), map[string]any{
		"id": id, "team_id": teamID, "name": name,
	})
}
