// Package explorer fetches verified contract source from a
// block-explorer API.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/artspect/pkg/artspect/pipeline"
)

const (
	// Throttle signals and non-success statuses back off briefly;
	// network-level faults get a longer pause.
	statusBackoff  = 3 * time.Second
	networkBackoff = 10 * time.Second
)

// Client calls an Etherscan-compatible getsourcecode endpoint.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

type lookupResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type sourceEntry struct {
	SourceCode string `json:"SourceCode"`
}

// Invoke implements pipeline.Adapter. Responses are classified into a
// usable source (Success), a confirmed unverified contract (Empty) or a
// retry-worthy fault (Transient); retries stay with the caller.
func (c *Client) Invoke(ctx context.Context, in pipeline.Invocation) pipeline.Outcome {
	req, err := c.newRequest(ctx, in.Key)
	if err != nil {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: statusBackoff, Err: err}
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: networkBackoff,
			Err: fmt.Errorf("explorer: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: networkBackoff,
			Err: fmt.Errorf("explorer: read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: statusBackoff,
			Err: fmt.Errorf("explorer: http %d", resp.StatusCode)}
	}

	// Throttled requests come back as an HTML interstitial page rather
	// than JSON.
	if looksLikeHTML(body) {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: statusBackoff,
			Err: fmt.Errorf("explorer: html response: %s", firstLine(stripHTML(string(body))))}
	}

	var payload lookupResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: statusBackoff,
			Err: fmt.Errorf("explorer: decode: %w", err)}
	}
	return classify(payload)
}

func classify(payload lookupResponse) pipeline.Outcome {
	if payload.Status != "1" {
		// A throttle signal arrives as a plain string in the result field.
		var detail string
		_ = json.Unmarshal(payload.Result, &detail)
		if detail == "" {
			detail = payload.Message
		}
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: statusBackoff,
			Err: fmt.Errorf("explorer: %s", detail)}
	}

	var entries []sourceEntry
	if err := json.Unmarshal(payload.Result, &entries); err != nil || len(entries) == 0 {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: statusBackoff,
			Err: fmt.Errorf("explorer: unexpected result shape")}
	}

	source := entries[0].SourceCode
	if source == "" || strings.Contains(source, "not verified") {
		return pipeline.Outcome{Kind: pipeline.Empty}
	}
	return pipeline.Outcome{Kind: pipeline.Success, Value: source}
}

func (c *Client) newRequest(ctx context.Context, address string) (*http.Request, error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getsourcecode")
	q.Set("address", address)
	if c.APIKey != "" {
		q.Set("apikey", c.APIKey)
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func looksLikeHTML(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "<")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// Fallback to string if parsing fails
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
