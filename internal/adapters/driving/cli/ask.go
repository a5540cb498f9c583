package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

var (
	askDocsFlag []string
	askJSONFlag bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against ingested reports",
	Long: `Ask retrieves relevant passages from the named documents and
synthesizes a cited, confidence-scored answer. When no --doc flag is
given the question runs against every ingested document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if engine == nil {
			return errors.New("engine not initialized")
		}

		query := args[0]
		docIDs := askDocsFlag
		if len(docIDs) == 0 {
			docs, err := engine.Documents(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range docs {
				docIDs = append(docIDs, d.ID)
			}
		}
		if len(docIDs) == 0 {
			return errors.New("no documents ingested; run 'marketlens ingest' first")
		}

		answer, err := engine.Ask(cmd.Context(), query, docIDs)
		if err != nil {
			return err
		}

		if askJSONFlag {
			out, err := json.MarshalIndent(answer, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		}

		printAnswer(cmd, answer)
		return nil
	},
}

func printAnswer(cmd *cobra.Command, answer domain.Answer) {
	cmd.Println(answer.Text)
	cmd.Println()
	cmd.Printf("Confidence: %.2f\n", answer.Confidence)

	if !answer.Grounded() {
		return
	}

	if len(answer.Citations) > 0 {
		cmd.Println("\nSources:")
		for _, c := range answer.Citations {
			cmd.Printf("  %s %s (chunk %d, similarity %.2f)\n", c.Marker, c.DocumentID, c.Position, c.Similarity)
		}
	}

	cmd.Printf("\nSentiment: %s\n", describeSentiment(answer.Sentiment))

	if len(answer.Topics) > 0 {
		cmd.Println("Topics:")
		for _, t := range answer.Topics {
			cmd.Printf("  %s (%.0f%%)\n", strings.Join(t.Keywords, ", "), t.Weight*100)
		}
	}
}

func describeSentiment(score float64) string {
	var label string
	switch {
	case score > 0.2:
		label = "positive"
	case score < -0.2:
		label = "negative"
	default:
		label = "neutral"
	}
	return fmt.Sprintf("%s (%.2f)", label, score)
}

func init() {
	askCmd.Flags().StringSliceVar(&askDocsFlag, "doc", nil, "document to consult (repeatable; default: all)")
	askCmd.Flags().BoolVar(&askJSONFlag, "json", false, "output the full answer as JSON")
	rootCmd.AddCommand(askCmd)
}
