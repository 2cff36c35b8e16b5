package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxContent limits the size of a single answer.
const maxContent = 64 << 10

// HTTPFetcher retrieves urls with a plain GET.
type HTTPFetcher struct {
	Client *http.Client
}

// Fetch implements the Fetcher interface.
func (f HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxContent))
}
