package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrygo/coworkr/plugin/ai/assistant"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		caller, _ := cmd.Flags().GetString("caller")
		if strings.TrimSpace(caller) == "" {
			return fmt.Errorf("--caller is required")
		}
		p, err := loadProfile()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer a.Close()

		return chatLoop(cmd.Context(), a.assistant, caller, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().String("caller", "", "team member id to talk as")
}

type turnHandler interface {
	Handle(ctx context.Context, req *assistant.Request) *assistant.Response
}

// chatLoop reads one utterance per line until EOF or "exit".
func chatLoop(ctx context.Context, h turnHandler, caller string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line != "" {
			resp := h.Handle(ctx, &assistant.Request{Caller: caller, Utterance: line})
			fmt.Fprintln(out, resp.ReplyText)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
