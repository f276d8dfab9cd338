package boards

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/board-reminder/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	pttAdultCookie = "over18=1"
	// Index pages hold 20 rows; the cap keeps a broken pager from looping forever.
	pttMaxPages = 50
)

// pttFetcher reads board index pages in the PTT web layout.
type pttFetcher struct {
	client HTTPClient
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewPTTFetcher builds a fetcher for PTT-style board indexes.
func NewPTTFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &pttFetcher{client: client, sleep: sleepContext}
}

func (f *pttFetcher) Type() string {
	return TypePTT
}

// FetchMetadata walks index pages from newest to oldest until count rows are
// collected and returns the count most recent rows in page order.
func (f *pttFetcher) FetchMetadata(ctx context.Context, src Source, board string, count int) ([]domain.Item, error) {
	if !strings.EqualFold(src.Type, TypePTT) {
		return nil, fmt.Errorf("ptt fetcher received incompatible source type %q", src.Type)
	}
	board = strings.TrimSpace(board)
	if board == "" {
		return nil, fmt.Errorf("board name is empty")
	}

	headers := Headers(src)
	if _, ok := headers["Cookie"]; !ok {
		headers["Cookie"] = pttAdultCookie
	}

	pageURL := fmt.Sprintf("%s/bbs/%s/index.html", src.BaseURL, url.PathEscape(board))
	var items []domain.Item

	for page := 0; page < pttMaxPages && pageURL != ""; page++ {
		if page > 0 {
			if err := f.sleep(ctx, src.RequestDelay()); err != nil {
				return nil, err
			}
		}

		body, err := fetchPage(ctx, f.client, pageURL, headers)
		if err != nil {
			return nil, err
		}

		rows, prev, err := parsePTTIndex(body, src.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse %s index: %w", board, err)
		}

		items = append(rows, items...)
		if len(items) >= count {
			break
		}
		pageURL = prev
	}

	if len(items) > count {
		items = items[len(items)-count:]
	}
	return items, nil
}

// parsePTTIndex extracts the listed rows (excluding pinned rows below the
// separator) and the absolute URL of the previous page, if any.
func parsePTTIndex(body []byte, baseURL string) ([]domain.Item, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}

	container := doc.Find(".r-list-container").First()
	if container.Length() == 0 {
		return nil, "", fmt.Errorf("board list container not found")
	}

	var items []domain.Item
	container.Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("r-list-sep") {
			return false
		}
		if s.HasClass("r-ent") {
			items = append(items, parsePTTRow(s, baseURL))
		}
		return true
	})

	return items, previousPageURL(doc, baseURL), nil
}

func parsePTTRow(s *goquery.Selection, baseURL string) domain.Item {
	title := s.Find(".title").First()
	link := ""
	if a := title.Find("a").First(); a.Length() > 0 {
		link, _ = a.Attr("href")
	}

	return domain.Item{
		ID:     parseItemID(link),
		Title:  strings.TrimSpace(title.Text()),
		Author: strings.TrimSpace(s.Find(".meta .author").First().Text()),
		Date:   strings.TrimSpace(s.Find(".meta .date").First().Text()),
		Link:   resolveURL(link, baseURL),
		Lock:   parseLockFlag(s.Find(".meta .mark").First().Text()),
	}
}

func parseLockFlag(mark string) domain.LockFlag {
	switch strings.TrimSpace(mark) {
	case "M":
		return domain.LockMarked
	case "!":
		return domain.LockLocked
	default:
		return domain.LockNone
	}
}

// previousPageURL finds the "older page" pager button. Disabled buttons carry no href.
func previousPageURL(doc *goquery.Document, baseURL string) string {
	buttons := doc.Find(".btn-group-paging a")
	prev := buttons.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "上頁")
	}).First()
	if prev.Length() == 0 {
		prev = buttons.Eq(1)
	}
	href, ok := prev.Attr("href")
	if !ok {
		return ""
	}
	return resolveURL(href, baseURL)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
