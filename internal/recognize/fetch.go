package recognize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

const maxImageBytes = 32 << 20 // 32MB

// Fetcher acquires raw image bytes from a remote URL or a local path.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch resolves an image source. http(s) URLs are downloaded; file://
// prefixes and bare paths are read from the local filesystem (local and
// batch validation modes).
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return f.download(ctx, source)
	case strings.HasPrefix(source, "file://"):
		return f.readLocal(strings.TrimPrefix(source, "file://"))
	default:
		return f.readLocal(source)
	}
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", common.ErrAcquisition, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", common.ErrAcquisition, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: download status %d", common.ErrAcquisition, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", common.ErrAcquisition, err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", common.ErrAcquisition, maxImageBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response body", common.ErrAcquisition)
	}
	return body, nil
}

func (f *Fetcher) readLocal(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrAcquisition, path, err)
	}
	return b, nil
}
