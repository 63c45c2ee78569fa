package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bgdnvk/clanker/internal/model"
	"github.com/bgdnvk/clanker/internal/registry"
)

// buildRunConfig resolves the shared --config/--accounts/--regions/
// --concurrency/--dry-run/--yes flags into a model.RunConfig, following
// root.go's viper binding (RUN_USER from the environment stamps the run
// per spec.md §6).
func buildRunConfig() (model.RunConfig, error) {
	configPath, err := registry.DefaultPath(cfgFile)
	if err != nil {
		return model.RunConfig{}, fmt.Errorf("resolving config path: %w", err)
	}

	runUser := viper.GetString("run_user")
	if runUser == "" {
		runUser = os.Getenv("USER")
	}

	return model.RunConfig{
		ConfigPath:  configPath,
		Accounts:    splitList(viper.GetString("accounts")),
		Regions:     splitList(viper.GetString("regions")),
		Concurrency: viper.GetInt("concurrency"),
		DryRun:       viper.GetBool("dry_run"),
		Yes:          viper.GetBool("yes"),
		EmptyBuckets: viper.GetBool("empty_buckets"),
		RunUser:      runUser,
	}, nil
}

// splitList turns a comma-separated flag value into a slice; "all" (or an
// empty string) resolves to nil, meaning "every entry the registry knows".
func splitList(raw string) []string {
	if raw == "" || strings.EqualFold(raw, "all") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveAccounts narrows the registry's accounts to cfg.Accounts, or
// returns every account when cfg.Accounts is empty ("all").
func resolveAccounts(reg *registry.Registry, cfg model.RunConfig) ([]model.Account, error) {
	if len(cfg.Accounts) == 0 {
		return reg.ListAccounts(), nil
	}
	out := make([]model.Account, 0, len(cfg.Accounts))
	for _, name := range cfg.Accounts {
		a, err := reg.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// resolveRegions returns cfg.Regions unchanged when it is set, or the
// registry's user_settings.user_regions when cfg.Regions is empty.
func resolveRegions(reg *registry.Registry, cfg model.RunConfig) []string {
	if len(cfg.Regions) > 0 {
		return cfg.Regions
	}
	return reg.DefaultRegions()
}

// confirm prompts the operator before a mutating run unless --yes was
// passed or the run is a dry-run.
func confirm(cfg model.RunConfig, prompt string) bool {
	if cfg.Yes || cfg.DryRun {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
