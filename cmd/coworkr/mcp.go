package main

import (
	"github.com/spf13/cobra"

	"github.com/hrygo/coworkr/server/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), p)
		if err != nil {
			return err
		}
		defer a.Close()

		return mcp.ServeStdio(mcp.NewApp(a.assistant, a.dispatcher), version)
	},
}
