package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/samsaffron/line-llm/internal/config"
	"github.com/samsaffron/line-llm/internal/session"
	"github.com/spf13/cobra"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage line-llm configuration",
	Long: `View or edit your line-llm configuration.

Examples:
  line-llm config                              # show current config
  line-llm config init                         # write a config with defaults
  line-llm config set backend.kind openai      # change one value
  line-llm config get line.webhook_path`,
	RunE: configShow, // Default to show
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	RunE:  configPath,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (secrets redacted)",
	RunE:  configShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE:  configInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value while preserving comments.

Examples:
  line-llm config set line.channel_secret '${LINE_CHANNEL_SECRET}'
  line-llm config set backend.kind dify
  line-llm config set backend.base_url https://api.dify.ai/v1
  line-llm config set store.backend memory`,
	Args:              cobra.ExactArgs(2),
	RunE:              configSet,
	ValidArgsFunction: configSetCompletion,
}

var configGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Get a configuration value",
	Args:              cobra.ExactArgs(1),
	RunE:              configGet,
	ValidArgsFunction: configGetCompletion,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
}

func configShow(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		fmt.Fprintf(out, "# No config file (using defaults)\n")
		fmt.Fprintf(out, "# Create one at: %s\n\n", configPath)
	} else {
		fmt.Fprintf(out, "# %s\n\n", configPath)
	}

	fmt.Fprintf(out, "line:\n")
	printSecretStatus(out, "channel_secret", cfg.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	printSecretStatus(out, "channel_access_token", cfg.Line.ChannelAccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	fmt.Fprintf(out, "  webhook_path: %s\n", cfg.Line.WebhookPath)
	fmt.Fprintf(out, "  clear_command: %s\n", cfg.Line.ClearCommand)
	fmt.Fprintf(out, "  rich_rendering: %t\n", cfg.Line.RichRendering)

	fmt.Fprintf(out, "\nbackend:\n")
	fmt.Fprintf(out, "  kind: %s\n", cfg.Backend.Kind)
	if cfg.Backend.BaseURL != "" {
		fmt.Fprintf(out, "  base_url: %s\n", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Kind == config.BackendOpenAI {
		fmt.Fprintf(out, "  model: %s\n", cfg.Backend.Model)
	}
	fmt.Fprintf(out, "  timeout: %s\n", cfg.Backend.Timeout)
	envVar := "DIFY_API_KEY"
	if cfg.Backend.Kind == config.BackendOpenAI {
		envVar = "OPENAI_API_KEY"
	}
	printSecretStatus(out, "api_key", cfg.Backend.APIKey, envVar)

	fmt.Fprintf(out, "\nrender:\n")
	fmt.Fprintf(out, "  legacy_table_line_removal: %t\n", cfg.Render.LegacyTableLineRemoval)

	fmt.Fprintf(out, "\nstore:\n")
	fmt.Fprintf(out, "  backend: %s\n", cfg.Store.Backend)
	if cfg.Store.Path != "" {
		fmt.Fprintf(out, "  path: %s\n", cfg.Store.Path)
	}
	fmt.Fprintf(out, "  max_entries: %d\n", cfg.Store.MaxEntries)
	if cfg.Store.TTL > 0 {
		fmt.Fprintf(out, "  ttl: %s\n", cfg.Store.TTL)
	}

	fmt.Fprintf(out, "\nserver:\n")
	fmt.Fprintf(out, "  listen: %s\n", cfg.Addr())
	fmt.Fprintf(out, "\nlog:\n")
	fmt.Fprintf(out, "  level: %s\n", cfg.Log.Level)
	fmt.Fprintf(out, "  format: %s\n", cfg.Log.Format)
	return nil
}

// printSecretStatus shows whether a credential is set without printing it
func printSecretStatus(w io.Writer, name, value, envVar string) {
	if value != "" {
		fmt.Fprintf(w, "  %s: [set]\n", name)
	} else {
		fmt.Fprintf(w, "  %s: [NOT SET - export %s]\n", name, envVar)
	}
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if config.Exists() && !configInitForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	if err := config.Save(config.Defaults()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config written with defaults: %s\n", path)
	return nil
}

// configSet sets a configuration value while preserving comments
func configSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if !slices.Contains(config.Keys, key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := config.SetValue(key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

// configGet gets a configuration value
func configGet(cmd *cobra.Command, args []string) error {
	value, err := config.GetValue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

// configSetCompletion provides completions for config set
func configSetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return filterPrefix(config.Keys, toComplete), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return filterPrefix(configValueCompletions(args[0]), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configGetCompletion provides completions for config get
func configGetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return filterPrefix(config.Keys, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletions returns known values for enumerated keys
func configValueCompletions(key string) []string {
	switch key {
	case "backend.kind":
		return []string{config.BackendDify, config.BackendOpenAI}
	case "store.backend":
		return []string{session.BackendSQLite, session.BackendMemory, session.BackendNone}
	case "log.level":
		return []string{"debug", "info", "warn", "error"}
	case "log.format":
		return []string{"text", "json"}
	case "line.rich_rendering", "render.legacy_table_line_removal":
		return []string{"true", "false"}
	}
	return nil
}

func filterPrefix(items []string, prefix string) []string {
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
