package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"elite-starscan/internal/api"
	"elite-starscan/internal/config"
	"elite-starscan/internal/db"
	"elite-starscan/internal/logger"
	"elite-starscan/internal/starscan"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Replay the archive and serve the trees over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port")
	serveCmd.Flags().String("addr", "", "HTTP listen address")
	viper.BindPFlag("http_port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("http_addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger.Banner(Version)

	archive, err := db.Open(cfg.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	ctx, cancel := setupSignalContext()
	defer cancel()

	eng := newEngine(cfg)
	st, err := replayArchive(ctx, eng, archive, 0)
	if err != nil {
		return err
	}
	printStats(eng, st)

	return serveHTTP(ctx, &cfg, eng, archive)
}

// serveHTTP runs the API until ctx is cancelled.
func serveHTTP(ctx context.Context, cfg *config.Config, eng *starscan.Engine, archive *db.DB) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewServer(cfg, eng, archive).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Server(cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("HTTP", "Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
