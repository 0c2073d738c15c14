/*
Package directory looks up the live status of Tor relays through an
Onionoo-compatible directory service.

One HTTP request is issued per fingerprint; there is no batching, no retry,
and no backoff. A transient failure for one fingerprint is the caller's
problem to report and skip, never to retry automatically.
*/
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"torwatch/internal/app/node"
)

// ErrNotFound reports that the directory has no record for a syntactically
// valid fingerprint.
var ErrNotFound = errors.New("relay not found in directory")

// detailsFields keeps the response payload small; everything else Onionoo
// publishes is irrelevant here.
const detailsFields = "running,nickname,country_name,bandwidth_rate,last_restarted"

// maxResponseBytes bounds how much of a directory response is read. Detail
// documents for a single relay are a few KB.
const maxResponseBytes = 1 << 20

// RelayInfo is the snapshot of a single relay's status. It is recomputed on
// every lookup and never persisted.
type RelayInfo struct {
	Running       bool
	Nickname      string
	CountryName   string
	BandwidthRate int64
	LastRestarted time.Time
}

type detailsResponse struct {
	Relays []relayDocument `json:"relays"`
}

type relayDocument struct {
	Running       bool   `json:"running"`
	Nickname      string `json:"nickname"`
	CountryName   string `json:"country_name"`
	BandwidthRate int64  `json:"bandwidth_rate"`
	LastRestarted string `json:"last_restarted"`
}

// Client queries an Onionoo-compatible details endpoint.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a Client for the given base URL. Every lookup is bounded
// by timeout; httpClient may be nil, in which case a default client is used.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Lookup fetches the current status of one relay. It returns ErrNotFound
// when the directory has no matching relay, and a wrapped transport error on
// HTTP failure or a malformed body.
func (c *Client) Lookup(ctx context.Context, fp node.Fingerprint) (*RelayInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := url.Values{}
	values.Set("search", string(fp))
	values.Set("fields", detailsFields)
	endpoint := c.baseURL + "/details?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: lookup %s: %w", fp, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4*1024))
		return nil, fmt.Errorf("directory: lookup %s: http %d: %s", fp, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload detailsResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("directory: lookup %s: decode response: %w", fp, err)
	}

	if len(payload.Relays) == 0 {
		return nil, ErrNotFound
	}

	doc := payload.Relays[0]
	info := &RelayInfo{
		Running:       doc.Running,
		Nickname:      doc.Nickname,
		CountryName:   doc.CountryName,
		BandwidthRate: doc.BandwidthRate,
	}

	if doc.LastRestarted != "" {
		restarted, err := parseDirectoryTime(doc.LastRestarted)
		if err != nil {
			return nil, fmt.Errorf("directory: lookup %s: parse last_restarted: %w", fp, err)
		}
		info.LastRestarted = restarted
	}

	return info, nil
}

// parseDirectoryTime accepts the Onionoo timestamp format and RFC 3339.
func parseDirectoryTime(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
