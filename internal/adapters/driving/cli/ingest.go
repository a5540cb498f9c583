package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var ingestIDFlag string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a report into the engine",
	Long: `Ingest reads a plain-text report, chunks and embeds it, and publishes
a searchable index for it. Re-ingesting the same identifier replaces the
document wholesale.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if engine == nil {
			return errors.New("engine not initialized")
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		filename := filepath.Base(path)
		documentID := ingestIDFlag
		if documentID == "" {
			documentID = documentIDFromFilename(filename)
		}

		if err := engine.Ingest(cmd.Context(), documentID, filename, string(data)); err != nil {
			return err
		}

		cmd.Printf("Ingested %s as %q\n", filename, documentID)
		return nil
	},
}

// documentIDFromFilename derives a stable identifier from the file name
// stem: lowercased, spaces collapsed to hyphens.
func documentIDFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = strings.ToLower(stem)
	return strings.Join(strings.Fields(stem), "-")
}

func init() {
	ingestCmd.Flags().StringVar(&ingestIDFlag, "id", "", "document identifier (default: derived from the file name)")
	rootCmd.AddCommand(ingestCmd)
}
