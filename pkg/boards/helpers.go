package boards

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/board-reminder/pkg/httpclient"
)

var digitsRe = regexp.MustCompile(`\d+`)

// parseItemID extracts the first run of digits from the last path segment of
// link, e.g. /bbs/Test/M.1700000000.A.1F2.html -> 1700000000.
func parseItemID(link string) int64 {
	if link == "" {
		return 0
	}
	name := link
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	m := digitsRe.FindString(name)
	if m == "" {
		return 0
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// resolveURL makes href absolute against base.
func resolveURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

func fetchPage(ctx context.Context, client httpclient.Client, pageURL string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, pageURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d body: %s", pageURL, resp.StatusCode(), responseSnippet(body))
	}

	return body, nil
}
