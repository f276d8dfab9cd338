package boards

import (
	"context"

	"github.com/Adda-Baaj/board-reminder/internal/domain"
	"github.com/Adda-Baaj/board-reminder/pkg/httpclient"
)

// Fetcher lists the most recent items of a board hosted by a source.
// Concrete implementations live in source-specific files (e.g., ptt.go).
type Fetcher interface {
	Type() string
	FetchMetadata(ctx context.Context, src Source, board string, count int) ([]domain.Item, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within boards.
type HTTPClient = httpclient.Client
