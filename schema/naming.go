package schema

import "github.com/jinzhu/inflection"

// DefaultAttributeName derives a relationship attribute name from the
// remote table when the mapping does not declare one. Collections get the
// pluralized table name, to-one references the singular.
// Example: remote table "team" -> "teams" (one-to-many), "team" (many-to-one).
func DefaultAttributeName(rel Relationship) string {
	if rel.ToMany() {
		return inflection.Plural(rel.RemoteTable)
	}
	return inflection.Singular(rel.RemoteTable)
}
