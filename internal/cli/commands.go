package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"modelchat-backend/internal/chatclient"
	"modelchat-backend/internal/middleware"
)

var (
	sendModel string
	tokenUser string
	tokenTTL  time.Duration
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := api.ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("%s", chatclient.DescribeError(err))
		}
		fmt.Fprintln(out(cmd), chatclient.DefaultTheme.RenderModels(list, ""))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		session := chatclient.NewSession(api)
		if err := session.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("%s", chatclient.DescribeError(err))
		}
		fmt.Fprintln(out(cmd), chatclient.DefaultTheme.RenderHistory(session.History(), modelNames(cmd)))
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:     "send PROMPT...",
	Short:   "Send one prompt and print the updated conversation",
	Example: `  chat send --model gpt-4o "Explain recursion"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session := chatclient.NewSession(api)
		session.SelectModel(sendModel)
		if err := session.Send(cmd.Context(), strings.Join(args, " ")); err != nil {
			if chatclient.StoredBeforeFailure(err) {
				fmt.Fprintln(out(cmd), chatclient.DefaultTheme.RenderHistory(session.History(), modelNames(cmd)))
			}
			return fmt.Errorf("%s", chatclient.DescribeError(err))
		}
		fmt.Fprintln(out(cmd), chatclient.DefaultTheme.RenderHistory(session.History(), modelNames(cmd)))
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development token from JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		if strings.TrimSpace(tokenUser) == "" {
			return fmt.Errorf("--user is required")
		}
		signed, err := middleware.NewJWTAuth(secret).GenerateAccessToken(tokenUser, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Fprintln(out(cmd), signed)
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendModel, "model", "m", "", "model tag")
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id to put in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

// modelNames maps tags to display names; lookup failures fall back to tags.
func modelNames(cmd *cobra.Command) map[string]string {
	names := map[string]string{}
	list, err := api.ListModels(cmd.Context())
	if err != nil {
		return names
	}
	for _, m := range list {
		names[m.Tag] = m.Name
	}
	return names
}
