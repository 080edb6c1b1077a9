// Package main is the library CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/guildfordia/the-library/internal/config"
	"github.com/guildfordia/the-library/internal/index"
	"github.com/guildfordia/the-library/internal/ingest"
	"github.com/guildfordia/the-library/internal/models"
	"github.com/guildfordia/the-library/internal/query"
	"github.com/guildfordia/the-library/internal/ranking"
	"github.com/guildfordia/the-library/internal/server"
	"github.com/guildfordia/the-library/internal/storage"
	"github.com/guildfordia/the-library/internal/tuning"
	"github.com/guildfordia/the-library/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/library/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory, so running from the
// project dir picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "search":
		runSearch()
	case "export":
		runExport()
	case "version", "--version", "-v":
		fmt.Printf("library version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: library <command> [flags]

Commands:
  server    Start the HTTP API server
  import    Import a bibliography and highlight extracts
  search    Search the library from the command line
  export    Dump books and quotes as JSON
  version   Print version`)
}

// components bundles everything a command needs to operate on one library.
type components struct {
	Storage *storage.SQLiteStorage
	Index   index.Index
	Writer  index.Writer
	Manager *tuning.Manager
	Store   *tuning.FSStore
	Engine  *ranking.Engine
}

func (c *components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	c := &components{Storage: store}

	switch cfg.Index.Backend {
	case config.BackendBleve:
		b, err := index.NewBleve(cfg.Storage.BleveIndexPath)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Index, c.Writer = b, b
	default:
		f, err := index.NewFTS(store.DB())
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Index, c.Writer = f, f
	}

	profiles, err := tuning.NewFSStore(cfg.Storage.ProfilesDir)
	if err != nil {
		c.Close()
		return nil, err
	}
	manager, err := tuning.NewManager(profiles, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = profiles
	c.Manager = manager
	c.Engine = ranking.NewEngine(c.Index, store, &cfg.Search, logger)
	return c, nil
}

func newLogger(cfg *config.Config, debugFlag bool) *zap.Logger {
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("index_backend", cfg.Index.Backend),
	)

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	profileWatcher := tuning.NewWatcher(c.Store, c.Manager, logger)
	if err := profileWatcher.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start profile watcher", zap.Error(err))
	}
	defer profileWatcher.Stop()

	srv := server.NewServer(c.Engine, query.NewParser(), c.Manager, c.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	biblio := fs.String("biblio", "", "bibliography file (CSV or XLSX)")
	extracts := fs.String("extracts", "", "directory of *_highlights.json files")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if *biblio == "" && *extracts == "" {
		fmt.Println("At least one of -biblio or -extracts is required")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, *debug)
	defer logger.Sync()

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	importer := ingest.NewImporter(c.Storage, c.Writer, logger)
	start := time.Now()
	stats, err := importer.Run(context.Background(), *biblio, *extracts)
	if err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}
	fmt.Printf("Imported %d books and %d quotes in %s\n",
		stats.Books, stats.Quotes, time.Since(start).Round(time.Millisecond))
	if stats.Placeholders > 0 {
		fmt.Printf("%d extract files had no bibliography match and got placeholder books\n", stats.Placeholders)
	}
	if stats.SkippedFiles > 0 {
		fmt.Printf("%d extract files were skipped as malformed\n", stats.SkippedFiles)
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "number of book groups")
	asJSON := fs.Bool("json", false, "print raw JSON response")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: library search [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, false)
	defer logger.Sync()

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	parser := query.NewParser()
	if !parser.Validate(queryStr) {
		fmt.Println("Invalid query")
		os.Exit(1)
	}
	parsed := parser.Parse(queryStr)
	if parsed.Expression == "" {
		fmt.Println("Query has no searchable terms")
		os.Exit(1)
	}

	groups, total, err := c.Engine.Search(context.Background(), parsed.Expression, parsed.ExactPhrase, c.Manager.Current(), 0, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(models.SearchResponse{
			Results: groups, Total: total, Offset: 0, Limit: *limit, Query: parsed.Original,
		})
		return
	}

	fmt.Printf("%d matching books for %q\n\n", total, parsed.Original)
	for _, g := range groups {
		fmt.Printf("%s", g.Book.Title)
		if g.Book.Authors != "" {
			fmt.Printf(" - %s", g.Book.Authors)
		}
		fmt.Printf(" (%d hits, %d quotes total)\n", g.HitsCount, g.TotalQuotes)
		for _, q := range g.TopQuotes {
			text := utils.Truncate(q.Text, 160)
			if q.Page > 0 {
				fmt.Printf("  [%.2f] p.%d  %s\n", q.Score, q.Page, text)
			} else {
				fmt.Printf("  [%.2f]  %s\n", q.Score, text)
			}
		}
		fmt.Println()
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("out", "", "output file (default stdout)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, false)
	defer logger.Sync()

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	ctx := context.Background()
	books, err := c.Storage.ListBooks(ctx, 0, -1)
	if err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}
	quotes, err := c.Storage.ListQuotes(ctx, 0, -1)
	if err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}

	dump := map[string]interface{}{"books": books, "quotes": quotes}
	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			logger.Fatal("Failed to create output file", zap.Error(err))
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		logger.Fatal("Failed to write export", zap.Error(err))
	}
	if *out != "" {
		fmt.Printf("Exported %d books and %d quotes to %s\n", len(books), len(quotes), *out)
	}
}
