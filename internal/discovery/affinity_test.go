package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAffinityDefaults(t *testing.T) {
	t.Parallel()
	tables := DefaultAffinityTables()

	if got := tables.PlatformAffinity("github", "jira"); got != 0.9 {
		t.Fatalf("github/jira: got=%v want=0.9", got)
	}
	if got := tables.PlatformAffinity("jira", "github"); got != 0.9 {
		t.Fatalf("pair lookup must be order-independent: got=%v", got)
	}
	if got := tables.PlatformAffinity("slack", "slack"); got != 0.6 {
		t.Fatalf("same platform: got=%v want=0.6", got)
	}
	if got := tables.PlatformAffinity("jira", "pagerduty"); got != 0.5 {
		t.Fatalf("unlisted pair default: got=%v want=0.5", got)
	}

	if got := tables.TypeCompatibility("commit", "pull_request"); got != 0.8 {
		t.Fatalf("commit/pull_request: got=%v want=0.8", got)
	}
	if got := tables.TypeCompatibility("issue", "issue"); got != 0.7 {
		t.Fatalf("same type: got=%v want=0.7", got)
	}
	if got := tables.TypeCompatibility("issue", "calendar_event"); got != 0.5 {
		t.Fatalf("unlisted type default: got=%v want=0.5", got)
	}
}

func TestAffinityNormalizesTags(t *testing.T) {
	t.Parallel()
	tables := DefaultAffinityTables()
	if got := tables.PlatformAffinity(" GitHub ", "JIRA"); got != 0.9 {
		t.Fatalf("tags should be trimmed and lower-cased: got=%v", got)
	}
}

func TestLoadAffinityTablesOverlay(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "affinity.yaml")
	content := `
platforms:
  same: 0.65
  pairs:
    github/pagerduty: 0.85
types:
  pairs:
    incident/message: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	tables, err := LoadAffinityTables(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := tables.PlatformAffinity("jira", "jira"); got != 0.65 {
		t.Fatalf("overridden same-platform: got=%v want=0.65", got)
	}
	if got := tables.PlatformAffinity("pagerduty", "github"); got != 0.85 {
		t.Fatalf("added pair: got=%v want=0.85", got)
	}
	if got := tables.TypeCompatibility("message", "incident"); got != 0.9 {
		t.Fatalf("added type pair: got=%v want=0.9", got)
	}
	// Untouched defaults survive the overlay.
	if got := tables.PlatformAffinity("github", "jira"); got != 0.9 {
		t.Fatalf("default pair lost: got=%v", got)
	}
}

func TestLoadAffinityTablesRejectsBadPairKey(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "affinity.yaml")
	if err := os.WriteFile(path, []byte("platforms:\n  pairs:\n    github: 0.9\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadAffinityTables(path); err == nil {
		t.Fatal("expected error for pair key without separator")
	}
}

func TestLoadAffinityTablesEmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()
	tables, err := LoadAffinityTables("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := tables.TypeCompatibility("issue", "commit"); got != 0.8 {
		t.Fatalf("defaults expected: got=%v", got)
	}
}
