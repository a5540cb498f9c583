package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if engine == nil {
			return errors.New("engine not initialized")
		}

		docs, err := engine.Documents(cmd.Context())
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			cmd.Println("No documents ingested.")
			return nil
		}

		for _, d := range docs {
			cmd.Printf("%s\t%s\t%s\n", d.ID, d.Filename, d.IngestedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}
