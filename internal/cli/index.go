package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"lexai/config"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus and warm the embedding cache",
	Long: `Load the corpus, embed every passage that is not cached yet, and build
the dense and BM25 indexes. Later commands reuse the cached embeddings.

Examples:
  lexai index
  lexai index -d /path/to/project`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	fmt.Printf("Loading %s...\n", config.ResolvePath(GetRootDir(), cfg.Corpus.Path))

	var (
		bar         *progressbar.ProgressBar
		barMu       sync.Mutex
		startTime   time.Time
		initialized bool
	)

	progressCallback := func(processed, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if !initialized {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
			initialized = true
		}

		_ = bar.Set(processed)

		if processed > 0 && processed < total {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	e, err := openEngine(cmd.Context(), progressCallback)
	if err != nil {
		return err
	}
	defer e.Close()

	r := e.result
	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Records:     %d\n", r.Records)
	fmt.Printf("  Passages:    %d\n", r.Passages)
	fmt.Printf("  Skipped:     %d (malformed)\n", r.Skipped)
	fmt.Printf("  Cached:      %d\n", r.Cached)
	fmt.Printf("  Embedded:    %d\n", r.Embedded)
	fmt.Printf("  Duration:    %s\n", formatDuration(r.Duration))

	if r.LoadErr != nil {
		fmt.Printf("\nWarning: %v\n", r.LoadErr)
	}

	count, err := e.cache.Count()
	if err == nil {
		fmt.Printf("\nEmbedding cache: %s (%d vectors)\n",
			config.ResolvePath(GetRootDir(), e.cfg.Embedding.CachePath), count)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
