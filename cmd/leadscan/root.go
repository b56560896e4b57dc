package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/leadscan/internal/api"
	"github.com/jackzampolin/leadscan/internal/app"
	"github.com/jackzampolin/leadscan/internal/config"
	"github.com/jackzampolin/leadscan/internal/home"
	"github.com/jackzampolin/leadscan/internal/ocr/tesseract"
	"github.com/jackzampolin/leadscan/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "leadscan",
	Short: "Extract contact leads from business documents",
	Long: `leadscan extracts structured contact leads (name, email, phone, company,
...) from business cards, flyers and multi-page PDFs.

Each page is sent to a vision model when one is configured; pages the model
cannot handle fall back to local OCR with pattern heuristics. Large PDFs are
processed locally in parallel. Every lead carries a confidence score.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.leadscan/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "leadscan home directory (default: ~/.leadscan)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default: from config)",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if outputFormat != "yaml" && outputFormat != "json" {
			return fmt.Errorf("unknown output format: %s", outputFormat)
		}
		api.SetOutputFormat(outputFormat)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// env is the state shared by commands that run the pipeline in-process.
type env struct {
	home   *home.Dir
	mgr    *config.Manager
	logger *slog.Logger
}

// loadEnv resolves the home directory, loads configuration and builds a
// logger writing to w.
func loadEnv(w *os.File) (*env, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = mgr.Get().LogLevel
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	mgr.SetLogger(logger)

	return &env{home: h, mgr: mgr, logger: logger}, nil
}

// newApp wires an App for cfg with the Tesseract OCR engine.
func (e *env) newApp(cfg *config.Config) (*app.App, error) {
	return app.New(app.Config{
		Config: cfg,
		Home:   e.home,
		Logger: e.logger,
		OCR:    tesseract.New(cfg.Local.Languages()...),
	})
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level: %s", s)
}
