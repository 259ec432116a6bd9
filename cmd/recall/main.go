package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/conorfennell/recall/internal/backup"
	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/importer"
	"github.com/conorfennell/recall/internal/remote"
	"github.com/conorfennell/recall/internal/scheduler"
	"github.com/conorfennell/recall/internal/storage"
	syncpkg "github.com/conorfennell/recall/internal/sync"
	"github.com/conorfennell/recall/internal/trash"
)

func main() {
	flags := config.Flags()
	syncNow := flags.Bool("sync-now", false, "run a full sync and exit")
	exportPath := flags.String("export", "", "write a backup of all data to this file and exit")
	restorePath := flags.String("restore", "", "replace all data from this backup file and exit")
	emptyTrash := flags.Bool("empty-trash", false, "permanently delete everything in the trash and exit")
	listDue := flags.Bool("due", false, "list cards due for review and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := trash.NewManager(store, slog.Default())

	result, err := manager.RunMaintenance(ctx)
	if err != nil {
		slog.Error("startup maintenance failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup maintenance complete",
		"decks_recounted", result.DecksRecounted,
		"orphaned_reviews", result.OrphanedReviews,
		"orphaned_logs", result.OrphanedLogs,
	)

	switch {
	case *exportPath != "":
		if err := backup.WriteFile(ctx, store, *exportPath); err != nil {
			slog.Error("export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Exported backup to %s.\n", *exportPath)
		return
	case *restorePath != "":
		if err := backup.ReadFile(ctx, store, *restorePath); err != nil {
			slog.Error("restore failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Restored backup from %s.\n", *restorePath)
		return
	case *emptyTrash:
		count, err := manager.EmptyTrash(ctx)
		if err != nil {
			slog.Error("failed to empty trash", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Permanently deleted %d cards.\n", count)
		return
	case *listDue:
		if err := printDueCards(ctx, store); err != nil {
			slog.Error("failed to list due cards", "error", err)
			os.Exit(1)
		}
		return
	}

	importer.Run(ctx, store, importSources(cfg), cfg.ReposDir)

	if cfg.Remote.URL == "" {
		slog.Info("no remote configured, running local-only")
		if *syncNow {
			slog.Error("cannot sync without remote.url configured")
			os.Exit(1)
		}
		return
	}

	client := remote.NewClient(cfg.Remote.URL, cfg.Remote.Token, cfg.Remote.User)
	engine := syncpkg.NewEngine(store, client, syncpkg.Options{
		Interval: cfg.Sync.Interval,
		Logger:   slog.Default(),
	})
	defer engine.Close()

	if *syncNow {
		if err := engine.SyncAll(ctx); err != nil {
			slog.Error("sync failed", "error", err)
			os.Exit(1)
		}
		slog.Info("sync complete")
		return
	}

	if !cfg.Sync.Auto {
		slog.Info("auto sync disabled")
		return
	}

	engine.Start(ctx)
	slog.Info("auto sync running", "interval", cfg.Sync.Interval)
	<-ctx.Done()
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func importSources(cfg *config.Config) []importer.Source {
	sources := make([]importer.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, importer.Source{Path: s.Path, Deck: s.Deck})
	}
	return sources
}

func printDueCards(ctx context.Context, store *storage.Store) error {
	cards, err := store.ListActiveCards(ctx, "")
	if err != nil {
		return err
	}
	reviews, err := store.ListReviews(ctx)
	if err != nil {
		return err
	}
	byCard := make(map[string]int, len(reviews))
	for i := range reviews {
		byCard[reviews[i].CardID] = i
	}

	var due int
	for _, card := range cards {
		idx, ok := byCard[card.ID]
		if !ok {
			fmt.Printf("new     %s\n", card.Front)
			due++
			continue
		}
		review := reviews[idx]
		if scheduler.IsDue(review) {
			fmt.Printf("%-7s %s (interval %s)\n", review.State, card.Front, scheduler.FormatInterval(review.Interval))
			due++
		}
	}
	fmt.Printf("%d cards due.\n", due)
	return nil
}
