// blobcol is a command line client for a date-partitioned document
// collection stored in a NATS JetStream object store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/apicomponents/blob-collection/blobstore/natsobj"
	"github.com/apicomponents/blob-collection/collection"
	"github.com/apicomponents/blob-collection/metric"
)

const appName = "blobcol"

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in main", "panic", r, "stack", string(debug.Stack()))
			os.Exit(1)
		}
	}()

	if err := run(); err != nil {
		slog.Error("blobcol failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()

	if cli.ShowHelp {
		printHelp()
		return nil
	}
	if cli.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}
	if err := validateFlags(cli); err != nil {
		return err
	}

	logger := setupLogger(cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)

	storeCfg, colCfg, metricsPort, err := loadConfig(cli.ConfigPath)
	if err != nil {
		return err
	}
	if cli.MetricsPort != 0 {
		metricsPort = cli.MetricsPort
	}

	if cli.Validate {
		logger.Info("configuration valid",
			"store", storeCfg.URL,
			"bucket", storeCfg.Bucket,
			"collection", colCfg.Name)
		return nil
	}
	if cli.Command == "" {
		printHelp()
		return fmt.Errorf("no command given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()

	if metricsPort > 0 {
		server := metric.NewServer(metricsPort, "/metrics", registry)
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			if err := server.Stop(); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	store, err := natsobj.Connect(ctx, storeCfg, registry, logger)
	if err != nil {
		return fmt.Errorf("connect object store: %w", err)
	}
	defer store.Close()

	col, err := collection.New(store, colCfg,
		collection.WithLogger(logger),
		collection.WithMetrics(registry),
	)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	defer func() {
		if err := col.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("collection shutdown failed", "error", err)
		}
	}()

	switch cli.Command {
	case "put":
		return runPut(ctx, col, cli)
	case "get":
		return runGet(ctx, col, cli)
	case "list":
		return runList(ctx, col, cli)
	case "delete":
		return runDelete(ctx, col, cli)
	default:
		return fmt.Errorf("unknown command: %s", cli.Command)
	}
}

func runPut(ctx context.Context, col *collection.Collection, cli *CLIConfig) error {
	var body []byte
	if len(cli.Args) > 0 {
		body = []byte(cli.Args[0])
	} else {
		var err error
		body, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read document from stdin: %w", err)
		}
	}

	var doc collection.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	stored, err := col.Put(ctx, doc)
	if err != nil {
		return err
	}
	return printJSON(stored)
}

func runGet(ctx context.Context, col *collection.Collection, cli *CLIConfig) error {
	if len(cli.Args) != 1 {
		return fmt.Errorf("get requires exactly one document id")
	}

	doc, err := col.Get(ctx, cli.Args[0])
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", cli.Args[0])
	}
	return printJSON(doc)
}

func runList(ctx context.Context, col *collection.Collection, cli *CLIConfig) error {
	projections, err := col.List(ctx, collection.ListQuery{
		BeforeID: cli.Before,
		Limit:    cli.Limit,
	})
	if err != nil {
		return err
	}
	return printJSON(projections)
}

func runDelete(ctx context.Context, col *collection.Collection, cli *CLIConfig) error {
	if len(cli.Args) != 1 {
		return fmt.Errorf("delete requires exactly one document id")
	}
	return col.Delete(ctx, cli.Args[0])
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
