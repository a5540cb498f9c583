package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var compareQuestionFlag string

var compareCmd = &cobra.Command{
	Use:   "compare <report-a> <report-b>",
	Short: "Ingest two reports and compare them",
	Long: `Compare ingests both report files and asks a comparison question
across the pair. Re-running on the same files re-indexes them. Use
--question to override the default comparison prompt.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if engine == nil {
			return errors.New("engine not initialized")
		}

		docIDs := make([]string, 0, 2)
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			filename := filepath.Base(path)
			documentID := documentIDFromFilename(filename)
			if err := engine.Ingest(cmd.Context(), documentID, filename, string(data)); err != nil {
				return fmt.Errorf("ingest %s: %w", filename, err)
			}
			docIDs = append(docIDs, documentID)
		}

		question := compareQuestionFlag
		if question == "" {
			question = fmt.Sprintf(
				"Compare the market outlook, key findings and notable risks of %s and %s. Where do they agree and where do they diverge?",
				docIDs[0], docIDs[1],
			)
		}

		answer, err := engine.Ask(cmd.Context(), question, docIDs)
		if err != nil {
			return err
		}

		printAnswer(cmd, answer)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareQuestionFlag, "question", "", "comparison question (default: a general comparison prompt)")
	rootCmd.AddCommand(compareCmd)
}
