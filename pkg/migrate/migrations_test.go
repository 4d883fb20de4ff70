package migrate

import "testing"

func TestMigrationsDirectoryIsValid(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations should validate: %v", err)
	}
}

func TestValidateDirRejectsMissingDir(t *testing.T) {
	if err := ValidateDir("does-not-exist"); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	if err := ValidateDir(""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
