/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"referralhub/internal/bootstrap/logging"
	"referralhub/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the referral HTTP API",
	RunE: withApp(func(cmd *cobra.Command, svc appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = svc.App.Config.HTTP.Addr
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           newReferralHTTPHandler(svc.Referrals, svc.Verifier),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       svc.App.Config.HTTP.ReadTimeout,
			WriteTimeout:      svc.App.Config.HTTP.WriteTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- server.ListenAndServe()
		}()
		logging.Info(ctx, "referral api started", slog.String("addr", addr), slog.String("auth_mode", svc.App.Config.Auth.Mode))

		select {
		case err := <-serveErr:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "referral api failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve referral api")
			}
			return nil
		case <-sigCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown referral api")
		}
		logging.Info(ctx, "referral api stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (defaults to http.addr from config)")
}
