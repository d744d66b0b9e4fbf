package explorer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/artspect/pkg/artspect/pipeline"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection reset")
}

func newClient(transport http.RoundTripper) *Client {
	return &Client{
		BaseURL:    "https://api.test/api",
		APIKey:     "key",
		HTTPClient: &http.Client{Transport: transport},
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestInvokeVerifiedSource(t *testing.T) {
	client := newClient(roundTrip(func(req *http.Request) *http.Response {
		q := req.URL.Query()
		if q.Get("address") != "0xA" || q.Get("action") != "getsourcecode" {
			t.Errorf("unexpected query: %s", req.URL.RawQuery)
		}
		return jsonResponse(200, `{"status":"1","message":"OK","result":[{"SourceCode":"contract Art {}"}]}`)
	}))

	out := client.Invoke(context.Background(), pipeline.Invocation{Key: "0xA"})
	if out.Kind != pipeline.Success || out.Value != "contract Art {}" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestInvokeUnverifiedIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "empty source",
			body: `{"status":"1","message":"OK","result":[{"SourceCode":""}]}`,
		},
		{
			name: "placeholder source",
			body: `{"status":"1","message":"OK","result":[{"SourceCode":"Contract source code not verified"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(roundTrip(func(*http.Request) *http.Response {
				return jsonResponse(200, tt.body)
			}))
			out := client.Invoke(context.Background(), pipeline.Invocation{Key: "0xA"})
			if out.Kind != pipeline.Empty {
				t.Fatalf("expected Empty, got %+v", out)
			}
		})
	}
}

func TestInvokeThrottleIsTransient(t *testing.T) {
	client := newClient(roundTrip(func(*http.Request) *http.Response {
		return jsonResponse(200, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)
	}))

	out := client.Invoke(context.Background(), pipeline.Invocation{Key: "0xA"})
	if out.Kind != pipeline.Transient {
		t.Fatalf("expected Transient, got %+v", out)
	}
	if out.RetryAfter != statusBackoff {
		t.Errorf("expected %v backoff, got %v", statusBackoff, out.RetryAfter)
	}
	if !strings.Contains(out.Err.Error(), "Max rate limit reached") {
		t.Errorf("error should carry the throttle detail: %v", out.Err)
	}
}

func TestInvokeHTMLInterstitialIsTransient(t *testing.T) {
	client := newClient(roundTrip(func(*http.Request) *http.Response {
		return jsonResponse(200, "<html><body><h1>Checking your browser</h1></body></html>")
	}))

	out := client.Invoke(context.Background(), pipeline.Invocation{Key: "0xA"})
	if out.Kind != pipeline.Transient || out.RetryAfter != statusBackoff {
		t.Fatalf("expected Transient with status backoff, got %+v", out)
	}
	if !strings.Contains(out.Err.Error(), "Checking your browser") {
		t.Errorf("error should carry the page text: %v", out.Err)
	}
}

func TestInvokeStatusErrorIsTransient(t *testing.T) {
	client := newClient(roundTrip(func(*http.Request) *http.Response {
		return jsonResponse(503, "service unavailable")
	}))

	out := client.Invoke(context.Background(), pipeline.Invocation{Key: "0xA"})
	if out.Kind != pipeline.Transient || out.RetryAfter != statusBackoff {
		t.Fatalf("expected Transient with 3s backoff, got %+v", out)
	}
}

func TestInvokeNetworkFaultBacksOffLonger(t *testing.T) {
	client := newClient(failingTransport{})

	out := client.Invoke(context.Background(), pipeline.Invocation{Key: "0xA"})
	if out.Kind != pipeline.Transient {
		t.Fatalf("expected Transient, got %+v", out)
	}
	if out.RetryAfter != 10*time.Second {
		t.Errorf("network faults back off 10s, got %v", out.RetryAfter)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple page", input: "<html><body><p>Hello</p></body></html>", want: "Hello"},
		{name: "nested tags", input: "<div><b>Rate</b> limited</div>", want: "Rate limited"},
		{name: "plain text", input: "No HTML here", want: "No HTML here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripHTML(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
