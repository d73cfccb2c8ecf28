package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"modelchat-backend/internal/chatclient"
	"modelchat-backend/internal/models"
)

var replModel string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive chat with live history refresh",
	Long: `Starts an interactive chat. Lines are sent to the selected model.

Commands:
  /model TAG   switch model
  /models      list models
  /history     reprint the conversation
  /quit        exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		return runREPL(ctx, chatclient.NewSession(api), api, cmd.InOrStdin(), out(cmd))
	},
}

func init() {
	replCmd.Flags().StringVarP(&replModel, "model", "m", "", "initial model tag")
}

type catalogAPI interface {
	ListModels(ctx context.Context) ([]*models.Model, error)
	WebSocketURL() (string, error)
}

func runREPL(ctx context.Context, session *chatclient.Session, c catalogAPI, in io.Reader, w io.Writer) error {
	theme := chatclient.DefaultTheme
	var printMu sync.Mutex
	show := func(s string) {
		printMu.Lock()
		defer printMu.Unlock()
		fmt.Fprintln(w, s)
	}

	names := map[string]string{}
	list, err := c.ListModels(ctx)
	if err != nil {
		show(theme.RenderError(err))
	}
	for _, m := range list {
		names[m.Tag] = m.Name
	}
	session.SelectModel(replModel)

	if err := session.Refresh(ctx); err != nil {
		show(theme.RenderError(err))
	} else {
		show(theme.RenderHistory(session.History(), names))
	}

	// Updates from other devices; our own sends refresh synchronously.
	if wsURL, err := c.WebSocketURL(); err == nil {
		go chatclient.Watch(ctx, wsURL, func(u models.HistoryUpdate) {
			if session.Sending() {
				return
			}
			if err := session.Refresh(ctx); err == nil {
				show(theme.RenderHistory(session.History(), names))
			}
		})
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/models":
			show(theme.RenderModels(list, session.Model()))
		case line == "/history":
			show(theme.RenderHistory(session.History(), names))
		case strings.HasPrefix(line, "/model "):
			tag := strings.TrimSpace(strings.TrimPrefix(line, "/model "))
			session.SelectModel(tag)
			show("model: " + tag)
		default:
			if err := session.Send(ctx, line); err != nil {
				show(theme.RenderError(err))
				if chatclient.StoredBeforeFailure(err) {
					show(theme.RenderHistory(session.History(), names))
				}
				continue
			}
			show(theme.RenderHistory(session.History(), names))
		}
	}
	return scanner.Err()
}
