package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historySession string
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the saved turns of a session",
	Long: `Print every saved query and response of a session, oldest first.

Examples:
  lexai history --session 3f6c...
  lexai history --session 3f6c... --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySession, "session", "", "session id (required)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.MarkFlagRequired("session")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory(GetConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	turns, err := store.GetHistory(cmd.Context(), historySession)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if historyJSON {
		output, _ := json.MarshalIndent(turns, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(turns) == 0 {
		fmt.Printf("No history for session %s.\n", historySession)
		return nil
	}
	for _, t := range turns {
		fmt.Printf("[%s]\n", t.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("You:   %s\n", t.Query)
		fmt.Printf("LEXAI: %s\n\n", t.Response)
	}
	return nil
}
