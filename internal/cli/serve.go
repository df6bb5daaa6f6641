package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexai/internal/httpapi"
	"lexai/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve POST /query, POST /retrieve, GET /history/{session_id} and
GET /health. Stops gracefully on SIGINT or SIGTERM.

Examples:
  lexai serve
  lexai serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	qh, err := e.queryHandler()
	if err != nil {
		return err
	}

	addr := e.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := httpapi.NewServer(qh,
		usecase.NewRetrieveUseCase(e.retriever, e.timeout()),
		httpapi.WithAllowedOrigins(e.cfg.Server.AllowedOrigins),
		httpapi.WithDefaultK(e.cfg.Retrieve.TopK),
	)

	fmt.Printf("LEXAI API on http://%s (%d passages)\n", addr, e.retriever.Size())
	return srv.ListenAndServe(cmd.Context(), addr)
}
