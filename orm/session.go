package orm

import (
	"context"
	"fmt"
	"log/slog"

	"relfetch/planner"
	"relfetch/schema"
)

// KeyedEntity pairs a scanned entity with the grouping key column value
// returned alongside it (association-table queries).
type KeyedEntity struct {
	Entity    *Entity
	ParentKey any
}

// Session executes planned queries against one database and materializes
// the results as entities. It is not safe for concurrent use; run all
// fetches for a given entity set from a single owning goroutine.
type Session struct {
	exec   QueryExecutor
	reg    *schema.Registry
	logger *slog.Logger
}

// NewSession creates a session over an executor and a mapping registry.
// A nil logger falls back to slog.Default().
func NewSession(exec QueryExecutor, reg *schema.Registry, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{exec: exec, reg: reg, logger: logger}
}

// Registry returns the mapping registry the session resolves against.
func (s *Session) Registry() *schema.Registry {
	return s.reg
}

// Query runs a plan and scans every row into an entity of the given type.
func (s *Session) Query(ctx context.Context, table *schema.Table, plan planner.SQLQuery) ([]*Entity, error) {
	rows, err := s.query(ctx, plan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		entity, _, err := scanEntity(rows, table, false)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", table.Name, err)
	}
	return entities, nil
}

// QueryKeyed runs a plan whose final result column is a grouping key and
// scans every row into an entity paired with that key.
func (s *Session) QueryKeyed(ctx context.Context, table *schema.Table, plan planner.SQLQuery) ([]KeyedEntity, error) {
	rows, err := s.query(ctx, plan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keyed []KeyedEntity
	for rows.Next() {
		entity, key, err := scanEntity(rows, table, true)
		if err != nil {
			return nil, err
		}
		keyed = append(keyed, KeyedEntity{Entity: entity, ParentKey: key})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", table.Name, err)
	}
	return keyed, nil
}

// GetByPrimaryKeys batch-loads rows of a table by primary key value set.
func (s *Session) GetByPrimaryKeys(ctx context.Context, table *schema.Table, keys []any) ([]*Entity, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	plan, err := planner.ByPrimaryKeys(table, keys)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, table, plan)
}

func (s *Session) query(ctx context.Context, plan planner.SQLQuery) (Rows, error) {
	s.logger.DebugContext(ctx, "executing query",
		slog.String("sql", plan.SQL),
		slog.Int("args", len(plan.Args)),
	)
	rows, err := s.exec.QueryContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// scanEntity scans the current row into an entity. When withKey is set the
// row is expected to carry one trailing grouping key column.
func scanEntity(rows Rows, table *schema.Table, withKey bool) (*Entity, any, error) {
	n := len(table.Columns)
	dest := make([]any, n)
	holders := make([]any, n)
	for i := range holders {
		dest[i] = &holders[i]
	}

	var key any
	if withKey {
		dest = append(dest, &key)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s row: %w", table.Name, err)
	}

	values := make(map[string]any, n)
	for i, col := range table.Columns {
		values[col.Name] = normalizeValue(holders[i])
	}
	return NewEntity(table, values), normalizeValue(key), nil
}

// normalizeValue converts driver byte slices to strings so column values
// compare and print consistently.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
