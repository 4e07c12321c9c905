// Package planner builds the SQL statements issued during batch fetching.
// Plans are plain values (SQL text plus bind args) so they can be inspected
// and tested without touching a database.
package planner

import (
	"errors"
	"fmt"

	"relfetch/internal/sqlutil"
	"relfetch/schema"

	sq "github.com/Masterminds/squirrel"
)

// BatchParentAlias is the result column carrying the parent-side join key
// in association-table queries.
const BatchParentAlias = "__batch_parent"

// ErrNoPrimaryKey indicates a required primary key is missing for a plan.
var ErrNoPrimaryKey = errors.New("no primary key")

// ErrCompositePrimaryKey indicates a table's composite primary key cannot be
// used for a single-column batch lookup.
var ErrCompositePrimaryKey = errors.New("composite primary key not supported")

// SQLQuery is a planned SQL statement with its arguments.
type SQLQuery struct {
	SQL  string
	Args []any
}

// Related plans the single related-row select for a batch: all mapped
// columns of the related table constrained by the given condition.
func Related(table *schema.Table, cond sq.Sqlizer) (SQLQuery, error) {
	query, args, err := sq.Select(quotedColumnNames(table.ColumnNames())...).
		From(sqlutil.QuoteIdentifier(table.Name)).
		Where(cond).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, fmt.Errorf("failed to plan related select for %s: %w", table.Name, err)
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// JunctionRelated plans the many-to-many related select: related rows joined
// through the association table, each paired with the association row's
// parent-side key value so results can be grouped per parent.
func JunctionRelated(related *schema.Table, rel schema.Relationship, cond sq.Sqlizer) (SQLQuery, error) {
	if rel.JunctionTable == "" {
		return SQLQuery{}, fmt.Errorf("relationship %s has no junction table", rel.Name)
	}

	columns := make([]string, 0, len(related.Columns)+1)
	for _, name := range related.ColumnNames() {
		columns = append(columns, sqlutil.QualifyColumn(related.Name, name))
	}
	parentKeyColumn := sqlutil.QualifyColumn(rel.JunctionTable, rel.JunctionLocalColumns[0])
	columns = append(columns, fmt.Sprintf("%s AS %s", parentKeyColumn, BatchParentAlias))

	joinCondition := fmt.Sprintf(
		"%s ON %s = %s",
		sqlutil.QuoteIdentifier(rel.JunctionTable),
		sqlutil.QualifyColumn(rel.JunctionTable, rel.JunctionRemoteColumns[0]),
		sqlutil.QualifyColumn(related.Name, rel.RemoteColumns[0]),
	)

	query, args, err := sq.Select(columns...).
		From(sqlutil.QuoteIdentifier(related.Name)).
		InnerJoin(joinCondition).
		Where(cond).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return SQLQuery{}, fmt.Errorf("failed to plan junction select for %s: %w", related.Name, err)
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// Roots plans the initial parent-row select: all mapped columns of a
// table, capped at limit rows when limit is positive.
func Roots(table *schema.Table, limit uint64) (SQLQuery, error) {
	builder := sq.Select(quotedColumnNames(table.ColumnNames())...).
		From(sqlutil.QuoteIdentifier(table.Name)).
		PlaceholderFormat(sq.Question)
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return SQLQuery{}, fmt.Errorf("failed to plan root select for %s: %w", table.Name, err)
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

// ByPrimaryKeys plans a batch lookup of rows by primary key value set.
func ByPrimaryKeys(table *schema.Table, keys []any) (SQLQuery, error) {
	pkCols := table.PrimaryKeyColumns()
	if len(pkCols) == 0 {
		return SQLQuery{}, fmt.Errorf("%w: table %s", ErrNoPrimaryKey, table.Name)
	}
	if len(pkCols) > 1 {
		return SQLQuery{}, fmt.Errorf("%w: table %s", ErrCompositePrimaryKey, table.Name)
	}
	return Related(table, sq.Eq{sqlutil.QuoteIdentifier(pkCols[0].Name): keys})
}

// quotedColumnNames returns the backtick-quoted column identifiers with no
// table prefix.
func quotedColumnNames(columns []string) []string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = sqlutil.QuoteIdentifier(col)
	}
	return quoted
}
