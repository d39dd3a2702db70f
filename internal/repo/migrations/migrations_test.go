package migrations

import (
	"strings"
	"testing"
)

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;\n"
	got := UpSection(content)
	if !strings.Contains(got, "CREATE TABLE a") || strings.Contains(got, "DROP TABLE") {
		t.Fatalf("unexpected up section: %q", got)
	}
	if UpSection("SELECT 1;") != "SELECT 1;" {
		t.Fatalf("unmarked file should be returned whole")
	}
}

func TestEmbeddedMigrationsHaveUpSections(t *testing.T) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}
	count := 0
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		count++
		data, err := FS.ReadFile(entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if strings.TrimSpace(UpSection(string(data))) == "" {
			t.Fatalf("%s has an empty up section", entry.Name())
		}
	}
	if count == 0 {
		t.Fatalf("no migrations embedded")
	}
}
