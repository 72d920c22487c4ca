package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/jsonbatch/internal/adapters/fs"
	logAdapter "github.com/bft-labs/jsonbatch/internal/adapters/log"
	"github.com/bft-labs/jsonbatch/internal/cliconfig"
	"github.com/bft-labs/jsonbatch/pkg/jsonbatch"
	jblog "github.com/bft-labs/jsonbatch/pkg/log"
	"github.com/bft-labs/jsonbatch/plugins/configwatcher"
)

const longHelp = `Batch newline-delimited JSON records and POST them to an HTTP endpoint.

Records are read from stdin (or --input), buffered, and sent as a JSON array
when --flush-size records have accumulated or --idle-flush-time has passed.
A failed batch is retried record by record so a single bad record is dropped
on its own. Headers in the config file are reloaded while running.`

var exampleUsage = strings.TrimSpace(`
  tail -F app.log | jsonbatch --url https://logs.example.com/bulk --header Authorization="Bearer <token>"
  jsonbatch --config $HOME/.jsonbatch/config.toml --input events.ndjson.gz
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "jsonbatch",
		Short:        "Batch NDJSON records and POST them to an HTTP endpoint",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			useFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if useFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// JSONBATCH_* overrides the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logAdapter.NewConsoleLogger(cfg.LogLevel)
			logConfig(log, cfg)

			return run(cfg, cfgFile, useFile, log)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.jsonbatch/config.toml)")
	root.Flags().StringVar(&cfg.URL, "url", cfg.URL, "endpoint that receives each batch as a JSON array POST")
	root.Flags().StringToStringVar(&cfg.Headers, "header", cfg.Headers, "request header as Name=value (repeatable)")

	root.Flags().IntVar(&cfg.FlushSize, "flush-size", cfg.FlushSize, "records per batch")
	root.Flags().DurationVar(&cfg.IdleFlushTime, "idle-flush-time", cfg.IdleFlushTime, "flush a partial batch after this long without a flush")

	root.Flags().BoolVar(&cfg.RetryIndividual, "retry-individual", cfg.RetryIndividual, "split a failed batch into single-record batches")
	root.Flags().IntVar(&cfg.RetryMaxAttempts, "retry-max-attempts", cfg.RetryMaxAttempts, "whole-batch retries when --retry-individual=false")
	root.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "delay before a whole-batch retry")

	root.Flags().IntVar(&cfg.PoolMax, "pool-max", cfg.PoolMax, "maximum concurrent requests")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP request timeout")
	root.Flags().StringVar(&cfg.Compression, "compression", cfg.Compression, "request body compression: \"\" or gzip")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "how long to wait for in-flight batches on exit")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	root.Flags().StringVar(&cfg.Input, "input", cfg.Input, "NDJSON input file, - for stdin; .gz files are decompressed")

	if err := root.Execute(); err != nil {
		log := logAdapter.NewConsoleLogger("info")
		log.Error().Err(err).Msg("jsonbatch")
		os.Exit(1)
	}
}

func logConfig(log zerolog.Logger, cfg cliconfig.Config) {
	logCfg := cfg
	logCfg.Headers = make(map[string]string, len(cfg.Headers))
	for k := range cfg.Headers {
		logCfg.Headers[k] = "*****"
	}
	log.Info().Interface("config", logCfg).Msg("configuration")
}

func run(cfg cliconfig.Config, cfgFile string, watch bool, log zerolog.Logger) error {
	adapter := jblog.NewZerolog(log)

	opts := []jsonbatch.Option{jsonbatch.WithLogger(adapter)}
	if watch {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{Path: cfgFile}))
	}

	sink, err := jsonbatch.New(cfg.SinkConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}

	src, err := fs.OpenNDJSON(cfg.Input, adapter)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sink.Start(context.Background()); err != nil {
		return fmt.Errorf("start sink: %w", err)
	}

	// Reads from stdin block without observing ctx, so feeding runs on its
	// own goroutine and a signal only has to stop the select below.
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- feed(ctx, src, sink)
	}()

	var runErr error
	skipped := -1
	select {
	case <-ctx.Done():
		log.Info().Msg("received signal, stopping...")
	case err := <-feedErr:
		if err != nil {
			runErr = fmt.Errorf("read input: %w", err)
		}
		skipped = src.Skipped()
	}

	// Stop is bounded by the shutdown timeout.
	if err := sink.Stop(context.Background()); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("stop sink: %w", err))
	}

	stats := sink.Stats()
	ev := log.Info().
		Int64("delivered", stats.Delivered).
		Int64("failed", stats.Failed).
		Int64("splits", stats.Splits).
		Int64("retries", stats.Retries)
	if skipped >= 0 {
		ev = ev.Int("skipped_lines", skipped)
	}
	ev.Msg("done")
	return runErr
}

func feed(ctx context.Context, src *fs.NDJSONSource, sink *jsonbatch.Sink) error {
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := sink.Receive(ctx, rec); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
