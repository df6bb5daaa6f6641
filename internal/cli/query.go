package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"lexai/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show retrieval results for a question",
	Long: `Run hybrid retrieval only and print the ranked passages with their
chapter, fundamental-rights flag and fused score. No LLM is called.

Examples:
  lexai query -q "freedom of expression"
  lexai query -q "powers of the Senate" -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	topK := e.cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	results, err := usecase.NewRetrieveUseCase(e.retriever, e.timeout()).Retrieve(cmd.Context(), queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		rights := "no"
		if r.IsFundamentalRights {
			rights = "yes"
		}
		fmt.Printf("--- [%d] passage %d, chapter %s, rights: %s (score: %.3f, boost: %+.1f) ---\n",
			i+1, r.ID, r.Chapter, rights, r.Score, r.Boost)
		// Truncate long text for display
		text := []rune(r.Content)
		if len(text) > 200 {
			text = append(text[:200], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
