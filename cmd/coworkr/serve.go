package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrygo/coworkr/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, p)
		if err != nil {
			return err
		}
		defer a.Close()

		s := server.NewServer(p, a.assistant, a.dispatcher.Metrics())
		if err := s.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		s.Shutdown(context.Background())
		return nil
	},
}

func init() {
	flags := serveCmd.Flags()
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	_ = v.BindPFlag("addr", flags.Lookup("addr"))
	_ = v.BindPFlag("port", flags.Lookup("port"))
}
