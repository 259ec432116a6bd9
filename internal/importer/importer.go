// Package importer reconciles markdown card sources into local decks.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
)

// Source is a directory or git repository holding markdown card files.
// Cards found under Path are imported into the deck named Deck, which is
// created on first use.
type Source struct {
	Path string
	Deck string
}

// Run reconciles every source. Git sources are cloned or pulled under
// reposDir first. Errors in one source do not stop the others.
func Run(ctx context.Context, store *storage.Store, sources []Source, reposDir string) {
	if len(sources) == 0 {
		slog.Info("no import sources configured")
		return
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		slog.Error("failed to create repos directory", "error", err)
		return
	}

	for _, source := range sources {
		slog.Info("importing source", "path", source.Path, "deck", source.Deck)

		localPath := source.Path
		if isGitURL(source.Path) {
			repoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("could not determine local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, repoPath); err != nil {
				slog.Error("failed to sync git repo", "url", source.Path, "error", err)
				continue
			}
			localPath = repoPath
		}

		if err := importDirectory(ctx, store, localPath, source.Deck); err != nil {
			slog.Error("failed to import source", "path", source.Path, "error", err)
		}
	}
}

func importDirectory(ctx context.Context, store *storage.Store, dir, deckName string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to read source %s: %w", dir, err)
	}

	deck, err := ensureDeck(ctx, store, deckName)
	if err != nil {
		return err
	}

	existing, err := store.ListCardsByDeck(ctx, deck.ID)
	if err != nil {
		return fmt.Errorf("failed to list deck cards: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, card := range existing {
		seen[card.Front] = true
	}

	var inserted int
	var parseErrors []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		for _, parsed := range fileCards {
			if seen[parsed.Front] {
				continue
			}
			card := newCard(deck.ID, dir, parsed)
			if insertErr := store.InsertCard(ctx, card); insertErr != nil {
				parseErrors = append(parseErrors, fmt.Errorf("inserting card from %s: %w", path, insertErr))
				continue
			}
			seen[parsed.Front] = true
			inserted++
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}

	if inserted > 0 {
		count, err := store.CountActiveCards(ctx, deck.ID)
		if err != nil {
			return fmt.Errorf("failed to count deck cards: %w", err)
		}
		if err := store.SetDeckCardsCount(ctx, deck.ID, count, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("failed to update deck count: %w", err)
		}
	}

	slog.Info("import complete",
		"deck", deckName,
		"inserted", inserted,
		"errors", len(parseErrors),
	)
	for _, parseErr := range parseErrors {
		slog.Warn("import error", "error", parseErr)
	}
	return nil
}

func ensureDeck(ctx context.Context, store *storage.Store, name string) (*domain.Deck, error) {
	decks, err := store.ListDecks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	for i := range decks {
		if decks[i].Name == name {
			return &decks[i], nil
		}
	}

	now := time.Now().UnixMilli()
	deck := domain.Deck{
		ID:             uuid.NewString(),
		Name:           name,
		NewCardsPerDay: 20,
		ReviewsPerDay:  100,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.InsertDeck(ctx, deck); err != nil {
		return nil, fmt.Errorf("failed to create deck %q: %w", name, err)
	}
	return &deck, nil
}

func newCard(deckID, sourceDir string, parsed parser.ParsedCard) domain.Card {
	now := time.Now().UnixMilli()
	return domain.Card{
		ID:        uuid.NewString(),
		DeckID:    deckID,
		Front:     parsed.Front,
		Back:      parsed.Back,
		Notes:     parsed.Notes,
		Tags:      []string{},
		Source:    sourceDir,
		Deleted:   domain.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func isGitURL(path string) bool {
	if strings.HasSuffix(path, ".git") {
		return true
	}
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "git@")
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
