package server

import (
	"strings"
	"testing"
)

func TestMigrateErrorsAreSurfaced(t *testing.T) {
	t.Parallel()
	err := Migrate("file://migrations", "", "up", 0)
	if err == nil {
		t.Fatal("Migrate() with empty dsn = nil error")
	}
	if !strings.Contains(err.Error(), "dsn required") {
		t.Fatalf("Migrate() error = %v, want dsn required", err)
	}
}
