package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const sampleRegistry = `{
  "accounts": {
    "prod-a": {"account_id": "111111111111", "email": "a@example.com", "access_key": "AKIA111", "secret_key": "secretA"},
    "prod-b": {"account_id": "222222222222", "email": "b@example.com", "access_key": "ADD_ME", "secret_key": "ADD_ME"},
    "prod-c": {"account_id": "333333333333", "email": "c@example.com", "access_key": "", "secret_key": ""}
  },
  "user_settings": {
    "user_regions": ["us-east-1", "us-west-2"],
    "allowed_instance_types": ["t3.micro", "m5.large"]
  }
}`

func TestLoadFiltersPlaceholderAccounts(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	accounts := r.ListAccounts()
	if len(accounts) != 1 {
		t.Fatalf("expected 1 non-placeholder account, got %d", len(accounts))
	}
	if accounts[0].Name != "prod-a" {
		t.Errorf("expected prod-a to survive filtering, got %q", accounts[0].Name)
	}
}

func TestResolve(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"known account", "prod-a", false},
		{"placeholder account absent", "prod-b", true},
		{"unknown account", "does-not-exist", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := r.Resolve(tt.account)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var notFound *ErrAccountNotFound
				if !asErrAccountNotFound(err, &notFound) {
					t.Errorf("expected ErrAccountNotFound, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.account, err)
			}
			if acc.AccountID != "111111111111" {
				t.Errorf("unexpected account id %q", acc.AccountID)
			}
		})
	}
}

func asErrAccountNotFound(err error, target **ErrAccountNotFound) bool {
	e, ok := err.(*ErrAccountNotFound)
	if !ok {
		return false
	}
	*target = e
	return true
}

func TestDefaultRegionsAndInstanceTypes(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	regions := r.DefaultRegions()
	if len(regions) != 2 || regions[0] != "us-east-1" {
		t.Errorf("unexpected default regions: %v", regions)
	}

	types := r.AllowedInstanceTypes()
	if len(types) != 2 || types[1] != "m5.large" {
		t.Errorf("unexpected allowed instance types: %v", types)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing registry file")
	}
}

func TestLoadMalformedDocument(t *testing.T) {
	path := writeRegistry(t, "{not json")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed registry document")
	}
}

func TestDefaultPath(t *testing.T) {
	if got, err := DefaultPath("/explicit/path.json"); err != nil || got != "/explicit/path.json" {
		t.Fatalf("DefaultPath with flag: got %q, err %v", got, err)
	}

	t.Setenv("CONFIG_PATH", "/env/path.json")
	if got, err := DefaultPath(""); err != nil || got != "/env/path.json" {
		t.Fatalf("DefaultPath with env: got %q, err %v", got, err)
	}
}
