package httpsource

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"cropmap_service/internal/dataset"
)

// Source downloads the production CSV from a remote URL.
type Source struct {
	url    string
	client *http.Client
}

func NewSource(url string, timeout time.Duration) *Source {
	return &Source{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Load fetches and parses the CSV. There is no retry: a failed download is
// returned to the caller, which aborts start-up.
func (s *Source) Load(ctx context.Context) (*dataset.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, */*")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain a little of the body so the error carries some context
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("dataset server returned status %d: %q", resp.StatusCode, snippet)
	}

	ds, err := dataset.ReadCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote dataset: %w", err)
	}
	log.Printf("[dataset] downloaded %d records in %v", ds.Len(), time.Since(start).Round(time.Millisecond))
	return ds, nil
}
