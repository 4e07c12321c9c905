package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "users", "`users`"},
		{"name with underscore", "user_groups", "`user_groups`"},
		{"embedded backtick is escaped", "bad`name", "`bad``name`"},
		{"empty string", "", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.input); got != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestQualifyColumn(t *testing.T) {
	if got := QualifyColumn("teams", "club_id"); got != "`teams`.`club_id`" {
		t.Errorf("QualifyColumn = %q, want %q", got, "`teams`.`club_id`")
	}
}
