package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	config "github.com/marketlens/marketlens-cli/internal/adapters/driven/config/file"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure engine tuning and provider options.

Keys use the section.name form shown by 'settings show', for example
'engine.chunk_size' or 'provider.ollama_url'.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// engineKeys and providerKeys drive the show output, grouping keys the
// way the config file sections are laid out.
var engineKeys = []string{
	config.KeyChunkSize,
	config.KeyChunkOverlap,
	config.KeyKPerDoc,
	config.KeyMinScore,
	config.KeyCacheSize,
	config.KeyCacheTTL,
	config.KeyKeepaliveInterval,
	config.KeyKeepaliveTimeout,
	config.KeyMaxConcurrent,
	config.KeyGenerateTimeout,
	config.KeyTemperature,
	config.KeyMaxTokens,
}

var providerKeys = []string{
	config.KeyProvider,
	config.KeyOllamaURL,
	config.KeyEmbeddingModel,
	config.KeyLLMModel,
	config.KeyOpenAIKey,
	config.KeyPostgresURL,
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not initialized")
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Engine]")
	for _, key := range engineKeys {
		cmd.Printf("  %s: %s\n", key, displayValue(key))
	}
	cmd.Println()

	cmd.Println("[Provider]")
	for _, key := range providerKeys {
		cmd.Printf("  %s: %s\n", key, displayValue(key))
	}
	return nil
}

func displayValue(key string) string {
	v, ok := configStore.Get(key)
	if !ok {
		return "(default)"
	}
	if key == config.KeyOpenAIKey {
		return maskAPIKey(fmt.Sprintf("%v", v))
	}
	return fmt.Sprintf("%v", v)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not initialized")
	}

	key, raw := args[0], args[1]
	if !knownKey(key) {
		return fmt.Errorf("unrecognised key %q", key)
	}

	if err := configStore.Set(key, parseValue(raw)); err != nil {
		return err
	}
	if err := configStore.Save(); err != nil {
		return err
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

func knownKey(key string) bool {
	for _, k := range engineKeys {
		if k == key {
			return true
		}
	}
	for _, k := range providerKeys {
		if k == key {
			return true
		}
	}
	return false
}

// parseValue stores numbers and booleans typed so the typed accessors
// read them back without string coercion.
func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(strings.ToLower(raw)); err == nil {
		return b
	}
	return raw
}
