// Package registry implements the Credential Registry (C1): it loads the
// account-registry JSON document (spec.md §6), filters placeholder entries,
// and resolves logical account names to Account values for the rest of the
// engine. Loading follows the teacher's cmd/root.go initConfig flow —
// CONFIG_PATH / --config precedence, a home-directory default — adapted
// from a YAML app-config reader to a JSON document via encoding/json (the
// registry document's shape is fixed JSON per spec.md §6, so it is decoded
// directly rather than through viper's multi-format reader).
package registry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgdnvk/clanker/internal/model"
)

// document mirrors the on-disk JSON shape literally (spec.md §6).
type document struct {
	Accounts map[string]struct {
		AccountID string `json:"account_id"`
		Email     string `json:"email"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"accounts"`
	UserSettings struct {
		UserRegions          []string `json:"user_regions"`
		AllowedInstanceTypes []string `json:"allowed_instance_types"`
	} `json:"user_settings"`
}

// Registry is the loaded, immutable-for-the-run account registry.
type Registry struct {
	accounts             map[string]model.Account
	defaultRegions       []string
	allowedInstanceTypes []string
}

// DefaultPath resolves the registry document path: --config flag value if
// non-empty, else CONFIG_PATH env var, else $HOME/.clanker-accounts.json —
// mirroring cmd/root.go's cfgFile-then-home-directory precedence.
func DefaultPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return envPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving default registry path: %w", err)
	}
	return filepath.Join(home, ".clanker-accounts.json"), nil
}

// Load reads and parses the registry document at path. Configuration-missing
// and malformed-document errors are fatal (spec.md §4.1); placeholder
// entries are filtered with a logged warning, never fatal.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading account registry %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing account registry %s: %w", path, err)
	}

	r := &Registry{
		accounts:             make(map[string]model.Account, len(doc.Accounts)),
		defaultRegions:       doc.UserSettings.UserRegions,
		allowedInstanceTypes: doc.UserSettings.AllowedInstanceTypes,
	}

	for name, a := range doc.Accounts {
		if a.AccessKey == "" || strings.HasPrefix(a.AccessKey, "ADD_") {
			log.Printf("[registry] skipping placeholder account %q (unfilled access_key)", name)
			continue
		}
		r.accounts[name] = model.Account{
			Name:      name,
			AccountID: a.AccountID,
			Email:     a.Email,
			AccessKey: a.AccessKey,
			SecretKey: a.SecretKey,
			Regions:   doc.UserSettings.UserRegions,
		}
	}

	return r, nil
}

// ErrAccountNotFound is returned by Resolve when accountName has no
// corresponding non-placeholder registry entry.
type ErrAccountNotFound struct {
	Name string
}

func (e *ErrAccountNotFound) Error() string {
	return fmt.Sprintf("account %q not found in registry", e.Name)
}

// ListAccounts returns every non-placeholder account, order unspecified.
func (r *Registry) ListAccounts() []model.Account {
	out := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out
}

// Resolve returns the named account or ErrAccountNotFound.
func (r *Registry) Resolve(accountName string) (model.Account, error) {
	a, ok := r.accounts[accountName]
	if !ok {
		return model.Account{}, &ErrAccountNotFound{Name: accountName}
	}
	return a, nil
}

// DefaultRegions returns the registry's global user_settings.user_regions.
func (r *Registry) DefaultRegions() []string {
	return r.defaultRegions
}

// AllowedInstanceTypes returns the operator-configured instance-type
// allowlist as parsed from the registry document. No classify, cost or
// teardown path reads it.
func (r *Registry) AllowedInstanceTypes() []string {
	return r.allowedInstanceTypes
}
