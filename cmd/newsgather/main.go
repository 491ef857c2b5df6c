package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkrnews/newsgather/internal/app"
	"github.com/tkrnews/newsgather/internal/config"
	"github.com/tkrnews/newsgather/internal/logger"
)

var (
	logLevel   string
	outputPath string
)

func main() {
	root := &cobra.Command{
		Use:           "newsgather",
		Short:         "Canadian regional news gathering and narration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write JSON result to this file instead of stdout")

	root.AddCommand(serveCmd(), fetchCmd(), scrapeCmd(), processCmd(), pipelineCmd(), regionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the pipeline. Logs go to stderr so
// stdout stays clean JSON.
func setup(ctx context.Context) (*config.Config, *slog.Logger, *app.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log := logger.Init(cfg.LogLevel)

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, svc, nil
}

func writeJSON(v any) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if outputPath != "" {
		fmt.Fprintf(os.Stderr, "Results saved to %s\n", outputPath)
	}
	return nil
}
