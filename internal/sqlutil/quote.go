// Package sqlutil provides SQL utility functions.
package sqlutil

import (
	"fmt"
	"strings"
)

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QualifyColumn quotes a column identifier prefixed with its table name.
func QualifyColumn(table, column string) string {
	return fmt.Sprintf("%s.%s", QuoteIdentifier(table), QuoteIdentifier(column))
}
