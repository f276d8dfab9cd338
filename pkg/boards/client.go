package boards

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/board-reminder/internal/domain"
	"github.com/Adda-Baaj/board-reminder/pkg/httpclient"
)

// Client resolves board references to a source and delegates to the fetcher
// registered for that source's type.
type Client struct {
	sources *SourceRegistry

	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

// NewClient builds a scrape client over the given sources and fetchers.
func NewClient(sources *SourceRegistry, fetchers ...Fetcher) *Client {
	if sources == nil {
		sources = DefaultSources()
	}
	c := &Client{
		sources:  sources,
		fetchers: make(map[string]Fetcher),
	}
	for _, f := range fetchers {
		c.Register(f)
	}
	return c
}

// Register associates a fetcher with its source type.
func (c *Client) Register(f Fetcher) {
	if f == nil {
		return
	}
	key := strings.ToLower(strings.TrimSpace(f.Type()))
	if key == "" {
		return
	}

	c.mu.Lock()
	c.fetchers[key] = f
	c.mu.Unlock()
}

// DefaultHTTPClient returns a tuned client for board fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15 * time.Second) }

// DefaultClient wires up the known fetchers over sources.
func DefaultClient(sources *SourceRegistry, client HTTPClient) *Client {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return NewClient(sources, NewPTTFetcher(client))
}

// ParseBoardRef splits "source:board" into its parts; a bare board name
// belongs to the default source.
func ParseBoardRef(ref string) (sourceID, board string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("board reference is empty")
	}

	sourceID, board, found := strings.Cut(ref, ":")
	if !found {
		return DefaultSourceID, ref, nil
	}
	sourceID = strings.ToLower(strings.TrimSpace(sourceID))
	board = strings.TrimSpace(board)
	if sourceID == "" || board == "" {
		return "", "", fmt.Errorf("malformed board reference %q (expected source:board)", ref)
	}
	return sourceID, board, nil
}

// Resolve returns the source and fetcher that serve the board reference.
func (c *Client) Resolve(ref string) (Source, Fetcher, string, error) {
	if c == nil {
		return Source{}, nil, "", fmt.Errorf("board client is nil")
	}

	sourceID, board, err := ParseBoardRef(ref)
	if err != nil {
		return Source{}, nil, "", err
	}

	src, ok := c.sources.ByID(sourceID)
	if !ok {
		return Source{}, nil, "", fmt.Errorf("unknown source %q for board %q", sourceID, board)
	}

	c.mu.RLock()
	f, ok := c.fetchers[src.Type]
	c.mu.RUnlock()
	if !ok {
		return Source{}, nil, "", fmt.Errorf("no fetcher registered for source %q (type %q)", src.ID, src.Type)
	}

	return src, f, board, nil
}

// FetchMetadata returns the count most recent items of the referenced board.
func (c *Client) FetchMetadata(ctx context.Context, ref string, count int) ([]domain.Item, error) {
	if count <= 0 {
		return nil, fmt.Errorf("item count must be positive, got %d", count)
	}

	src, fetcher, board, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}

	items, err := fetcher.FetchMetadata(ctx, src, board, count)
	if err != nil {
		return nil, fmt.Errorf("fetch %s board %s: %w", src.ID, board, err)
	}
	return items, nil
}
