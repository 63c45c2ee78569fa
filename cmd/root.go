package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "clanker",
	Short: "Multi-account, multi-region AWS cloud infrastructure lifecycle orchestrator",
	Long: `clanker discovers, classifies, tears down, and prices resources across a
fleet of AWS accounts and regions: inventory walks every configured
(account, region) pair, teardown runs dependency-aware destruction against a
target resource, and cost joins a discovered inventory with live state to
compute accrued spend.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a caller-supplied context, the
// one main.go threads signal cancellation through.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "account registry JSON file (default: $CONFIG_PATH or $HOME/.clanker-accounts.json)")
	rootCmd.PersistentFlags().String("accounts", "all", "comma-separated account names, or 'all'")
	rootCmd.PersistentFlags().String("regions", "all", "comma-separated region names, or 'all' (uses user_settings.user_regions)")
	rootCmd.PersistentFlags().Int("concurrency", 10, "bounded worker pool size for the fanout scheduler")
	rootCmd.PersistentFlags().Bool("dry-run", false, "discover and plan but issue no mutating calls")
	rootCmd.PersistentFlags().Bool("yes", false, "skip the interactive confirmation prompt")
	rootCmd.PersistentFlags().Bool("debug", false, "enable verbose diagnostic logging")
	rootCmd.PersistentFlags().Bool("empty-buckets", false, "allow teardown to empty and delete non-empty S3 buckets (requires --yes)")

	viper.BindPFlag("accounts", rootCmd.PersistentFlags().Lookup("accounts"))
	viper.BindPFlag("regions", rootCmd.PersistentFlags().Lookup("regions"))
	viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	viper.BindPFlag("yes", rootCmd.PersistentFlags().Lookup("yes"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("empty_buckets", rootCmd.PersistentFlags().Lookup("empty-buckets"))

	viper.SetDefault("concurrency", 10)
}

// initConfig reads CONFIG_PATH/RUN_USER env vars and binds them through
// viper, following the teacher's cobra.OnInitialize pattern generalized
// from a YAML app-config file to this module's JSON account registry
// (resolved separately by internal/registry.DefaultPath).
func initConfig() {
	viper.AutomaticEnv()
	viper.BindEnv("config_path", "CONFIG_PATH")
	viper.BindEnv("run_user", "RUN_USER")

	if cfgFile == "" {
		cfgFile = viper.GetString("config_path")
	}

	if viper.GetBool("debug") && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "[clanker] using config file:", cfgFile)
	}
}
