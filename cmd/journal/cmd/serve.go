package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/simaogato/tradejournal-backend/internal/adapter/httpapi"
	"github.com/simaogato/tradejournal-backend/internal/logger"
	"github.com/simaogato/tradejournal-backend/internal/usecase/checklist"
	"github.com/simaogato/tradejournal-backend/internal/usecase/dashboard"
	"github.com/simaogato/tradejournal-backend/internal/usecase/desk"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the desk HTTP API with a live summary feed",
	Long: `Serve the trade desk over HTTP: checklist, draft, trades, settings and
stats under /api/v1, plus a websocket summary feed at /api/v1/ws.

Example:
  journal serve --addr :8081`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.http_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	gate, err := checklist.NewGate(s.items)
	if err != nil {
		return err
	}
	deskService := desk.NewService(s.trades, gate)
	dashboardService := dashboard.NewDashboardService(s.trades, s.settings)
	defer dashboardService.Close()

	hub := httpapi.NewHub(dashboardService)
	go hub.Run(ctx)

	gin.SetMode(s.cfg.Server.Mode)
	handler := httpapi.NewHandler(deskService, s.trades, s.settings, dashboardService)

	addr := serveAddr
	if addr == "" {
		addr = s.cfg.Server.HTTPAddr
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.NewRouter(handler, hub),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Desk API listening on %s for user %s", addr, s.userID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down desk API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
