package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leengari/joystore"
	"github.com/leengari/joystore/internal/config"
	"github.com/leengari/joystore/internal/logging"
	"github.com/leengari/joystore/internal/repl"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	storePath := flag.String("path", "", "Backing file path (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *storePath != "" {
		cfg.Path = *storePath
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger, closeFn := logging.SetupLogger(cfg.SeqURL, level)
	defer closeFn()
	slog.SetDefault(logger)

	db := joystore.New(joystore.Options{
		Path:             cfg.Path,
		AutosaveInterval: cfg.AutosaveInterval(),
		Logger:           logger,
	})

	// The registry is frozen once the store starts, so every table
	// named in the config is registered up front.
	tables := make(map[string]*joystore.KeyedTable[repl.Record])
	for _, name := range cfg.Tables {
		table := joystore.NewKeyedTable(recordKey, joystore.JSONCodec[repl.Record]())
		if err := db.AddTable(name, table); err != nil {
			slog.Error("failed to register table", "table", name, "error", err)
			os.Exit(1)
		}
		tables[name] = table
	}

	if err := db.Start(); err != nil {
		slog.Error("failed to start store", "path", cfg.Path, "error", err)
		closeFn()
		os.Exit(1)
	}

	// Flush and release the file on Ctrl-C as well as on normal exit
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("Shutting down - flushing store...")
		if err := db.Close(); err != nil {
			slog.Error("close failed", "error", err)
		}
		closeFn()
		os.Exit(0)
	}()

	slog.Info("Store ready!", "path", cfg.Path, "tables", len(tables))

	repl.Start(db, tables)

	slog.Info("Shutting down - flushing store...")
	if err := db.Close(); err != nil {
		slog.Error("close failed", "error", err)
	}
}

// recordKey extracts a record's own key; demo records carry it under
// "key".
func recordKey(r repl.Record) string {
	if k, ok := r["key"].(string); ok {
		return k
	}
	return fmt.Sprintf("%v", r["key"])
}
