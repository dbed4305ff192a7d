package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// keyEmbedAPIKey is masked when echoed back.
//
//nolint:gosec // G101: This is a config key name, not an actual credential.
const keyEmbedAPIKey = "embedding.api_key"

// readSecret reads an API key without echo. Replaced in tests.
var readSecret = readPassword

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure collections, chunking, the embedding provider and
retrieval limits. Settings are stored in the configuration file and can be
overridden with PERITOAI_* environment variables.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Validates and stores a single setting.

Run 'peritoai settings keys' for the list of keys.

Examples:
  peritoai settings set collections.policies.path ~/peritoai/policies
  peritoai settings set chunking.size 800
  peritoai settings set chunking.filters page_numbers,whitespace`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the supported setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the embedding API key",
	Long:  `Prompts for the embedding provider API key without echoing it.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsSetKey,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Interactively select the embedding provider, model and API key.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Collections]")
	cmd.Printf("  Policies: %s\n", settings.Collections.PoliciesPath)
	cmd.Printf("  Protocols: %s\n", settings.Collections.ProtocolsPath)
	cmd.Printf("  Pattern: %s\n", settings.Collections.Pattern)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	if len(settings.Chunking.Filters) > 0 {
		cmd.Printf("  Filters: %s\n", strings.Join(settings.Chunking.Filters, ", "))
	} else {
		cmd.Printf("  Filters: (none)\n")
	}
	cmd.Println()

	embedding := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", embedding.Model)
	if embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", embedding.BaseURL)
	}
	if embedding.Provider.RequiresAPIKey() {
		if embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", embedding.Dimensions)
	}
	if embedding.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/s: %g\n", embedding.RequestsPerSecond)
	}
	cmd.Printf("  Batch size: %d\n", embedding.BatchSize)
	status := "configured"
	if !embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Chunks per document: %d\n", settings.Retrieval.PerDocumentLimit)
	if settings.Retrieval.TotalChunkBudget > 0 {
		cmd.Printf("  Total chunk budget: %d\n", settings.Retrieval.TotalChunkBudget)
	} else {
		cmd.Printf("  Total chunk budget: unlimited\n")
	}
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	if settings.Storage.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Storage.DataDir)
	}
	cmd.Println()

	cmd.Printf("Config file: %s\n", settingsService.ConfigPath())
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'peritoai settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if key == keyEmbedAPIKey {
		value = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	cmd.Print("Enter API key: ")
	apiKey := readSecret()
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key must not be empty")
	}

	cmd.Print("Validating API key... ")
	if err := settingsService.SetAPIKey(cmd.Context(), apiKey); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("failed to store API key: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("API key stored: %s\n", maskAPIKey(apiKey))
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.EmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := selectedProvider.DefaultModel()
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty keeps the current one): ")
		apiKey = readSecret()
		cmd.Println()
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.SetEmbeddingProvider(cmd.Context(), selectedProvider, model, apiKey); err != nil {
		cmd.Println("FAILED")
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	cmd.Println("Run 'peritoai index --rebuild' if documents were indexed with another model.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
