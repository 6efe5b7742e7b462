// Command wallstub runs internal/wallstub.Server as a standalone process:
// a protocol-conformance test double that terminates connections from a
// source client, acknowledges every frame, and exposes /healthz and
// /metrics for operators driving it in integration environments.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wallstream/pixelstream/internal/wallstub"
	"github.com/wallstream/pixelstream/pkg/logger"
)

func main() {
	cmd := &cobra.Command{
		Use:   "wallstub",
		Short: "Run a minimal wire-protocol test receiver",
		RunE:  runWallstub,
	}

	cmd.Flags().String("addr", "0.0.0.0:1701", "address to accept client connections on")
	cmd.Flags().String("admin-addr", "0.0.0.0:9701", "address to serve /healthz and /metrics on")
	cmd.Flags().Int32("protocol-version", 15, "protocol version to report during the handshake")
	viper.BindPFlags(cmd.Flags())
	viper.SetEnvPrefix("PIXELSTREAM_WALLSTUB")
	viper.AutomaticEnv()

	if err := cmd.Execute(); err != nil {
		logger.L().Sugar().Fatal(err)
	}
}

func runWallstub(cmd *cobra.Command, args []string) error {
	log := logger.Named("wallstub")

	srv := wallstub.New(log, int32(viper.GetInt("protocol-version")))
	addr, err := srv.Listen(viper.GetString("addr"))
	if err != nil {
		return err
	}
	log.Info("wallstub listening", zap.String("addr", addr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Error("serve exited", zap.Error(err))
		}
	}()

	admin := newAdminServer(viper.GetString("admin-addr"))
	go func() {
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server exited", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = admin.Shutdown(shutdownCtx)
	cancel()
	return srv.Close()
}

func newAdminServer(addr string) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: r}
}
