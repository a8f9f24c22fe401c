package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tuannm99/kvsql"
	"github.com/tuannm99/kvsql/internal"
	"github.com/tuannm99/kvsql/internal/logging"
	"github.com/tuannm99/kvsql/server/kvsqlwire"
)

type serverFlags struct {
	config      string
	addr        string
	metricsAddr string
	mode        string
	workdir     string
}

func newRootCommand() *cobra.Command {
	var f serverFlags
	cmd := &cobra.Command{
		Use:           "kvsql-server",
		Short:         "kvsql TCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "HTTP address for /metrics and /status (overrides server.metrics_addr)")
	cmd.Flags().StringVar(&f.mode, "storage", "", "storage mode: memory, log or leveldb (overrides storage.mode)")
	cmd.Flags().StringVar(&f.workdir, "data-dir", "", "data directory (overrides storage.workdir)")
	return cmd
}

func loadConfig(cmd *cobra.Command, f *serverFlags) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(f.config)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Server.MetricsAddr = f.metricsAddr
	}
	if cmd.Flags().Changed("storage") {
		cfg.Storage.Mode = f.mode
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Storage.Workdir = f.workdir
	}
	if cfg.Server.Debug {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *internal.Config) error {
	_, flush, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer flush()

	db, err := kvsql.Open(cfg)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("close database", "err", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	srv := kvsqlwire.NewServer(db)
	if cfg.Server.MetricsAddr != "" {
		hs := &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           newHTTPHandler(db, srv),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("http: listening", "addr", cfg.Server.MetricsAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http: serve", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, ln)
}

func newHTTPHandler(db *kvsql.DB, srv *kvsqlwire.Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		st, err := db.Status()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			kvsql.Status
			Server kvsqlwire.Stats `json:"server"`
		}{st, srv.Stats()})
	})
	return mux
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "kvsql-server: %v\n", err)
		os.Exit(1)
	}
}
