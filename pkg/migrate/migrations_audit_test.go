package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stocktrail/stocktrail-backend/pkg/migrate"
)

func TestAuditMigrationIsAppendOnlyShape(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_audit_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no audit events migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE audit_events",
		"event_type TEXT NOT NULL",
		"entity_id BIGINT NOT NULL",
		"CREATE INDEX idx_audit_events_entity",
		"CREATE INDEX idx_audit_events_timestamp",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}

	// user_id is nullable so anonymous mutations stay representable.
	if strings.Contains(content, "user_id TEXT NOT NULL") {
		t.Errorf("user_id must be nullable")
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration dir failed validation: %v", err)
	}
}
