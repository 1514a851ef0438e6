package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/manualqa/internal/server"
)

var serverPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket chat server",
	Long:  `Starts a REST API and WebSocket endpoint for asking questions about the manuals. Each client conversation is a separate session persisted to the sessions database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := startup(ctx)
		if err != nil {
			return describeStartupError(err)
		}
		defer a.Close()

		report, err := a.prepareIndex(ctx, false)
		if err != nil {
			return describeStartupError(err)
		}
		printReport(report)

		engine, err := a.newEngine(ctx)
		if err != nil {
			return err
		}
		sessions, closeSessions, err := a.openSessions()
		if err != nil {
			return err
		}
		defer closeSessions()
		engine.WithRecorder(sessions.Recorder())

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}
		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAllOrigins,
		}, engine, sessions, a.index)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "manualqa server %s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Sessions: %s\n", a.cfg.SessionsDB)
		fmt.Fprintf(os.Stderr, "  Chunks indexed: %d\n", a.index.Count())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&serverPort, "port", 8080, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
