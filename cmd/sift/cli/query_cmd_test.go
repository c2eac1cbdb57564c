package cli

import (
	"strings"
	"testing"
)

func TestRunQuery_RejectsNonSelect(t *testing.T) {
	t.Parallel()
	cmd := newQueryCmd()

	for _, q := range []string{
		"DELETE FROM conversations",
		"DROP TABLE conversations",
		"update conversations set project = 'x'",
		"",
	} {
		err := runQuery(cmd, q)
		if err == nil {
			t.Errorf("runQuery(%q) = nil, want rejection", q)
			continue
		}
		if !IsSilentError(err) {
			t.Errorf("runQuery(%q) error not silent: %v", q, err)
		}
		if !strings.Contains(err.Error(), "SELECT") {
			t.Errorf("runQuery(%q) error = %v, want mention of SELECT", q, err)
		}
	}
}
