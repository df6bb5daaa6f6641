package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lexai/internal/usecase"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Start an interactive session. Each line is answered from the
Constitution; type "exit" to quit. Turns are saved to chat history.

Examples:
  lexai chat
  lexai chat --session 3f6c...`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume a session id (default is a new session)")
}

func runChat(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer e.Close()

	qh, err := e.queryHandler()
	if err != nil {
		return err
	}

	sessionID := chatSession
	if sessionID == "" {
		sessionID = usecase.NewSessionID()
	}
	return chatLoop(cmd.Context(), qh, sessionID, os.Stdin, cmd.OutOrStdout())
}

func chatLoop(ctx context.Context, qh *usecase.QueryHandler, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Welcome to LEXAI! Session %s. Type 'exit' to quit.\n", sessionID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if line == "" {
			continue
		}

		ans, err := qh.HandleQuery(ctx, sessionID, line)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			fmt.Fprintf(out, "LEXAI: Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "LEXAI: %s\n", ans.Response)
	}
}
