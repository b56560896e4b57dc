package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leadscan/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the leadscan server",
	Long: `Start the leadscan HTTP server.

The server provides:
  - POST /api/leads/extract - Upload a PDF or image (multipart field "file")
  - /health                 - Basic server health check
  - /ready                  - Readiness check (probes the remote model)
  - /status                 - Extraction tier and worker pool status

The config file is watched; changes to the remote settings take effect
without a restart. SIGHUP forces a reload.

Examples:
  leadscan serve                    # Start on the configured port (8000)
  leadscan serve --port 3000        # Start on custom port
  leadscan serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := loadEnv(os.Stdout)
		if err != nil {
			return err
		}
		cfg := e.mgr.Get()

		a, err := e.newApp(cfg)
		if err != nil {
			return err
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		if serveHost != "" {
			host = serveHost
		}
		if servePort != "" {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			App:           a,
			ConfigManager: e.mgr,
			Home:          e.home,
			CORSOrigins:   cfg.Server.CORSOrigins,
			Logger:        e.logger,
		})
		if err != nil {
			return err
		}

		if e.mgr.ConfigFile() != "" {
			e.mgr.WatchConfig()
			e.logger.Info("watching config file", "file", e.mgr.ConfigFile())
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-hup:
					if err := e.mgr.Reload(); err != nil {
						e.logger.Warn("reload on SIGHUP failed", "error", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host, 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port, 8000)")

	rootCmd.AddCommand(serveCmd)
}
