package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jsremote/dashboard"
	"github.com/jsremote/dashboard/config"
	"github.com/jsremote/dashboard/view"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the remote device dashboard",
		Long: `Serve the remote device dashboard.

The overview is served at the configured base path and every device view below it.
Metrics are exposed at /metrics.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, ".env")
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

// newServer builds the HTTP router and the shell it serves.
func newServer(cfg *config.Config, logger *slog.Logger) (http.Handler, *dashboard.Shell, error) {
	// templates from ViewsDir take precedence over the embedded ones
	imp := view.FSImporter(dashboard.DefaultViews())
	if cfg.ViewsDir != "" {
		imp = view.Chain(view.FSImporter(os.DirFS(cfg.ViewsDir)), imp)
	}

	shell, err := dashboard.LoadShell(imp, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load shell: %w", err)
	}

	errPage, err := imp.Import(dashboard.ErrorComponent)
	if err != nil {
		return nil, nil, fmt.Errorf("load error page: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h := &dashboard.Handler{
		Shell:    shell,
		BasePath: cfg.BasePath,
		Props: func(*http.Request) map[string]any {
			return map[string]any{
				"title":   cfg.Title,
				"devices": cfg.Devices,
			}
		},
		ErrorPage: errPage,
		Logger:    logger,
		Metrics:   dashboard.NewMetrics(reg),
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Handle("/*", dashboard.LoggerMiddleware(h, logger))

	return r, shell, nil
}

func serve(cfg *config.Config) error {
	level, _ := cfg.Level() // validated by config.Load
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	r, shell, err := newServer(cfg, logger)
	if err != nil {
		return err
	}
	defer shell.Dispose()

	logger.Info("Starting HTTP server", "address", cfg.Addr, "base_path", cfg.BasePath)

	err = http.ListenAndServe(cfg.Addr, r)

	logger.Error("HTTP server error", "error", err)
	return err
}
