package watchtower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrSourceUnavailable wraps every fetch failure. A poll that hits it is
// skipped and the stored fingerprint is left as it was.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source provides the current content of a monitored publication.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (string, error)
}

// Bulletins used by RotatingSource.
const (
	EvenMinuteBulletin = "SAMA updated consumer protection guidelines on microfinance lending."
	OddMinuteBulletin  = "CBUAE released new AML screening procedures for fintech operators."
)

// RotatingSource simulates a regulator feed that alternates between two
// bulletins on even and odd minutes.
type RotatingSource struct {
	Now func() time.Time
}

// NewRotatingSource creates a rotating source driven by the wall clock.
func NewRotatingSource() *RotatingSource {
	return &RotatingSource{Now: time.Now}
}

// Name returns "rotating".
func (s *RotatingSource) Name() string {
	return "rotating"
}

// Fetch returns the bulletin for the current minute.
func (s *RotatingSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if now().Minute()%2 == 0 {
		return EvenMinuteBulletin, nil
	}
	return OddMinuteBulletin, nil
}

// maxBodyBytes bounds how much of a remote document is read.
const maxBodyBytes = 4 << 20

// HTTPSource fetches a document over HTTP(S).
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSource creates an HTTP source with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration) (*HTTPSource, error) {
	if url == "" {
		return nil, fmt.Errorf("source url is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the source URL.
func (s *HTTPSource) Name() string {
	return s.url
}

// Fetch GETs the URL. Non-2xx responses are failures.
func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "compliops-watchtower")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: unexpected status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrSourceUnavailable, err)
	}
	return string(body), nil
}

// FileSource reads a local file. See Watch for change notifications.
type FileSource struct {
	path string
}

// NewFileSource creates a file source.
func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("source path is required")
	}
	return &FileSource{path: path}, nil
}

// Name returns the file path.
func (s *FileSource) Name() string {
	return s.path
}

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return string(data), nil
}
