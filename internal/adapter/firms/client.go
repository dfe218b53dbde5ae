package firms

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/firms-ingest/internal/config"
	"github.com/couchcryptid/firms-ingest/internal/domain"
)

// maxErrorBody caps how much of an error response is quoted back.
const maxErrorBody = 512

// Client fetches daily detection snapshots from the FIRMS area API.
// It implements pipeline.Fetcher.
type Client struct {
	mapKey     string
	baseURL    string
	area       string
	dayRange   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a FIRMS client from the service configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		mapKey:   cfg.FIRMSMapKey,
		baseURL:  cfg.FIRMSBaseURL,
		area:     cfg.FIRMSArea,
		dayRange: cfg.FIRMSDayRange,
		httpClient: &http.Client{
			Timeout: cfg.FIRMSTimeout,
		},
		logger: logger,
	}
}

// Fetch returns every row the feed holds for the source on the given day.
func (c *Client) Fetch(ctx context.Context, src domain.Source, day time.Time) (domain.Snapshot, error) {
	u := c.snapshotURL(src, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s request: %w", src, redact(err, c.mapKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Snapshot{}, fmt.Errorf("firms API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	snap, err := ParseSnapshot(resp.Body)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s snapshot: %w", src, err)
	}
	c.logger.Debug("snapshot fetched", "source", src, "rows", snap.Len(), "columns", len(snap.Columns))
	return snap, nil
}

func (c *Client) snapshotURL(src domain.Source, day time.Time) string {
	return strings.Join([]string{
		c.baseURL,
		url.PathEscape(c.mapKey),
		src.Product(),
		c.area,
		strconv.Itoa(c.dayRange),
		day.Format(time.DateOnly),
	}, "/")
}

// ParseSnapshot reads a FIRMS CSV body. The first record is the header; an
// empty day is a header with no rows. A body that is not a multi-column table
// (the API answers bad keys with a one-line message) is an error.
func ParseSnapshot(r io.Reader) (domain.Snapshot, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(3); len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3) //nolint:errcheck // peeked bytes are buffered
	}

	cr := csv.NewReader(br)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Snapshot{}, errors.New("empty response")
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return domain.Snapshot{}, fmt.Errorf("unexpected response: %q", strings.Join(header, ","))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read rows: %w", err)
	}
	return domain.Snapshot{Columns: header, Rows: rows}, nil
}

// redact keeps the map key out of logged transport errors, which quote the URL.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "<MAP_KEY>"))
}
