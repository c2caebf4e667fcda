package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quillcast/quillcast/internal/arxiv"
	"github.com/quillcast/quillcast/internal/batch"
	"github.com/quillcast/quillcast/internal/book"
	"github.com/quillcast/quillcast/internal/bus"
	"github.com/quillcast/quillcast/internal/config"
	"github.com/quillcast/quillcast/internal/extract"
	"github.com/quillcast/quillcast/internal/library"
	"github.com/quillcast/quillcast/internal/natsserver"
	"github.com/quillcast/quillcast/internal/rewrite"
	"github.com/quillcast/quillcast/internal/runtime"
	"github.com/quillcast/quillcast/internal/synth"
	"github.com/quillcast/quillcast/internal/tts"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		bookPath    string
		arxivURL    string
		chapter     int
		history     bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "quillcast.yaml", "Path to configuration file")
	flag.StringVar(&bookPath, "book", "", "Path to a plain-text or markdown manuscript")
	flag.StringVar(&arxivURL, "arxiv", "", "URL of an arXiv paper to narrate instead of a manuscript")
	flag.IntVar(&chapter, "chapter", -1, "Re-synthesize a single chapter by index instead of resuming the book")
	flag.BoolVar(&history, "history", false, "Print recent synthesis runs for the book and exit")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := runtime.NewLogger("info")

	if bookPath == "" && arxivURL == "" {
		logger.Error("nothing to narrate: pass -book or -arxiv")
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = runtime.NewLogger(cfg.Telemetry.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if history {
		if err := printHistory(ctx, cfg, bookPath, arxivURL, logger); err != nil {
			logger.Error("failed to list runs", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, bookPath, arxivURL, chapter, logger); err != nil {
		logger.Error("synthesis failed", slog.String("error", err.Error()))
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
	logger.Info("done")
}

func run(ctx context.Context, cfg config.Config, bookPath, arxivURL string, chapter int, logger *slog.Logger) error {
	telemetry, err := runtime.Setup(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	b, err := loadBook(ctx, cfg, bookPath, arxivURL, logger)
	if err != nil {
		return err
	}
	logger.Info("book loaded",
		slog.String("title", b.Title),
		slog.Int("chapters", len(b.Chapters)))

	var busClient *bus.Client
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			srv, err := natsserver.Start(cfg.Bus, logger)
			if err != nil {
				return fmt.Errorf("start embedded bus: %w", err)
			}
			defer srv.Shutdown()
		}
		busClient, err = bus.Connect(cfg.Bus, logger)
		if err != nil {
			return fmt.Errorf("connect to bus: %w", err)
		}
		defer busClient.Close()
	}

	store, err := library.Open(ctx, cfg.Library, logger)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer store.Close()
	if err := store.Prune(ctx); err != nil {
		logger.Warn("library prune failed", slog.String("error", err.Error()))
	}

	backend, err := tts.FromConfig(cfg.TTS)
	if err != nil {
		return err
	}

	var rewriter rewrite.Rewriter
	if cfg.Rewrite.Enabled {
		rewriter, err = rewrite.FromConfig(cfg.Rewrite)
		if err != nil {
			return err
		}
	}

	engine := synth.NewEngine(backend, synth.Options{
		MaxChunkChars:  cfg.Segment.MaxChunkChars,
		Concurrency:    cfg.TTS.Concurrency,
		RequestTimeout: time.Duration(cfg.TTS.RequestTimeoutMS) * time.Millisecond,
		MaxRetries:     cfg.TTS.MaxRetries,
		TempDir:        cfg.Output.TempDir,
	}, logger)

	processor := batch.New(b, cfg.Output.Dir, engine, batch.Options{
		Rewriter: rewriter,
		Bus:      busClient,
		Library:  store,
	}, logger)

	if chapter >= 0 {
		path, err := processor.Chapter(ctx, chapter)
		if err != nil {
			return err
		}
		logger.Info("chapter narrated", slog.String("path", path))
		return nil
	}
	if err := processor.All(ctx); err != nil {
		return err
	}
	logger.Info("book narrated", slog.String("dir", processor.Dir()))
	return nil
}

func printHistory(ctx context.Context, cfg config.Config, bookPath, arxivURL string, logger *slog.Logger) error {
	b, err := loadBook(ctx, cfg, bookPath, arxivURL, logger)
	if err != nil {
		return err
	}
	store, err := library.Open(ctx, cfg.Library, logger)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, b.Title, 50)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Printf("no recorded runs for %q\n", b.Title)
		return nil
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %-7s  [%d] %s", r.CreatedAt.Format(time.RFC3339), r.Status, r.ChapterIndex, r.Chapter)
		if r.Detail != "" {
			line += "  " + r.Detail
		}
		fmt.Println(line)
	}
	return nil
}

func loadBook(ctx context.Context, cfg config.Config, bookPath, arxivURL string, logger *slog.Logger) (*book.Book, error) {
	if arxivURL != "" {
		client := arxiv.NewClient(logger, arxiv.WithTempDir(cfg.Output.TempDir))
		return client.Paper(ctx, arxivURL)
	}
	return extract.FromFile(bookPath, extract.Options{
		MaxSentenceLength: cfg.Segment.MaxSentenceLength,
	})
}
