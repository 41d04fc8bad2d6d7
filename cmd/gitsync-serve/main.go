package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/pkg/config"
	"github.com/antgroup/gitsync/pkg/httpapi"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Errorf("gitsync-serve: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "gitsync-serve",
		Short: "Serve the git-over-object-store commit sync HTTP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configFile)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Location of the TOML config file (optional; env vars always override)")
	return cmd
}

func runServe(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	reposAdapter, err := objstore.NewS3Adapter(ctx, cfg.ReposBucket)
	if err != nil {
		return fmt.Errorf("connect repos bucket: %w", err)
	}
	fileTransferAdapter, err := objstore.NewS3Adapter(ctx, cfg.FileTransferBucket)
	if err != nil {
		return fmt.Errorf("connect file-transfer bucket: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Secret:              cfg.Secret,
		ReposAdapter:        reposAdapter,
		FileTransferAdapter: fileTransferAdapter,
	})

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		IdleTimeout:  cfg.IdleTimeout.Duration,
	}

	closed := make(chan struct{})
	go listenSignal(ctx, srv, closed)

	logrus.Infof("gitsync-serve listening on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	<-closed
	logrus.Infof("gitsync-serve exited")
	return nil
}

func listenSignal(ctx context.Context, srv *http.Server, closed chan<- struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("gitsync-serve shutdown error: %v", err)
	}
	close(closed)
}
