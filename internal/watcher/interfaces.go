package watcher

import (
	"context"

	"github.com/Adda-Baaj/board-reminder/internal/domain"
)

// MetadataFetcher returns the newest count items listed on a board.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, board string, count int) ([]domain.Item, error)
}

// Notifier delivers a text message. An empty receiver means broadcast.
type Notifier interface {
	Notify(ctx context.Context, text, receiver string) error
}
