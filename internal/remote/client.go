package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is an HTTP client for the recalld API. All requests are scoped to
// the configured user and authenticated with the shared token.
type Client struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
}

// NewClient creates a Client for baseURL (e.g. "https://sync.example.com").
func NewClient(baseURL, token, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		userID:  userID,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// UserID returns the user this client syncs as. An empty id means no session
// exists and the engine skips automatic syncs.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Recall-User", c.userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
		}
	}
	return nil
}

var errNotFound = fmt.Errorf("remote: not found")

// ListDecks returns the user's remote decks that are not soft-deleted.
func (c *Client) ListDecks(ctx context.Context) ([]Deck, error) {
	var decks []Deck
	if err := c.do(ctx, http.MethodGet, "/api/decks", nil, &decks); err != nil {
		return nil, err
	}
	return decks, nil
}

// GetDeck returns one remote deck, or nil if it does not exist.
func (c *Client) GetDeck(ctx context.Context, id string) (*Deck, error) {
	var deck Deck
	err := c.do(ctx, http.MethodGet, "/api/decks/"+url.PathEscape(id), nil, &deck)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deck, nil
}

// InsertDeck uploads a deck; the server assigns the canonical id and the
// created row is returned.
func (c *Client) InsertDeck(ctx context.Context, deck Deck) (Deck, error) {
	var created Deck
	if err := c.do(ctx, http.MethodPost, "/api/decks", deck, &created); err != nil {
		return Deck{}, err
	}
	return created, nil
}

// UpdateDeck pushes local deck fields onto the remote row.
func (c *Client) UpdateDeck(ctx context.Context, id string, update DeckUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/decks/"+url.PathEscape(id), update, nil)
}

// ListCards returns the user's remote cards that are not soft-deleted.
func (c *Client) ListCards(ctx context.Context) ([]Card, error) {
	var cards []Card
	if err := c.do(ctx, http.MethodGet, "/api/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard returns one remote card, or nil if it does not exist.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	var card Card
	err := c.do(ctx, http.MethodGet, "/api/cards/"+url.PathEscape(id), nil, &card)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// InsertCard uploads a card under its local id.
func (c *Client) InsertCard(ctx context.Context, card Card) error {
	return c.do(ctx, http.MethodPost, "/api/cards", card, nil)
}

// UpdateCard pushes local card fields onto the remote row.
func (c *Client) UpdateCard(ctx context.Context, id string, update CardUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/cards/"+url.PathEscape(id), update, nil)
}

// ListReviews returns all of the user's remote scheduling rows.
func (c *Client) ListReviews(ctx context.Context) ([]Review, error) {
	var reviews []Review
	if err := c.do(ctx, http.MethodGet, "/api/reviews", nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// InsertReview uploads a review without an id; the server generates one.
func (c *Client) InsertReview(ctx context.Context, review Review) error {
	return c.do(ctx, http.MethodPost, "/api/reviews", review, nil)
}

// UpdateReview pushes local scheduling fields onto the remote row for a card.
func (c *Client) UpdateReview(ctx context.Context, cardID string, update ReviewUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/reviews/card/"+url.PathEscape(cardID), update, nil)
}

// LatestStudyLogTimestamp returns the newest remote grading timestamp, zero
// when the user has no remote logs. This is the upload watermark.
func (c *Client) LatestStudyLogTimestamp(ctx context.Context) (int64, error) {
	var out struct {
		Timestamp int64 `json:"timestamp"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/study-logs/latest", nil, &out); err != nil {
		return 0, err
	}
	return out.Timestamp, nil
}

// ListStudyLogsAfter returns remote grading events strictly newer than the
// given timestamp.
func (c *Client) ListStudyLogsAfter(ctx context.Context, after int64) ([]StudyLog, error) {
	var logs []StudyLog
	path := "/api/study-logs?after=" + strconv.FormatInt(after, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// InsertStudyLog uploads one grading event.
func (c *Client) InsertStudyLog(ctx context.Context, log StudyLog) error {
	return c.do(ctx, http.MethodPost, "/api/study-logs", log, nil)
}
