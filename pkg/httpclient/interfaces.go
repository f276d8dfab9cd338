package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// JSONPoster sends a JSON-encoded body with the given method (POST when empty).
type JSONPoster interface {
	SendJSON(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error)
}
