// Package cli provides the terminal chat client.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"modelchat-backend/internal/chatclient"
)

var (
	// Global flags
	serverURL string
	token     string
	timeout   time.Duration

	api *chatclient.Client
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the models in the catalog",
	Long: `chat talks to a modelchat server as one user.

The bearer token comes from --token or CHAT_TOKEN. For local development
"chat token --user ID" mints one from JWT_SECRET.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "token" || cmd.Name() == "help" {
			return nil
		}
		if token == "" {
			return fmt.Errorf("no token: pass --token or set CHAT_TOKEN")
		}
		api = chatclient.New(serverURL, token, timeout)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	godotenv.Load()
	applyEnvDefaults()
	return rootCmd.Execute()
}

func applyEnvDefaults() {
	// Flags parsed later still win over the environment.
	if v := os.Getenv("CHAT_SERVER_URL"); v != "" {
		serverURL = v
	}
	if v := os.Getenv("CHAT_TOKEN"); v != "" {
		token = v
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL (env CHAT_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (env CHAT_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")

	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(tokenCmd)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
