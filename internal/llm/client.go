// Package llm classifies contract code through an OpenAI-compatible
// chat completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/artspect/pkg/artspect/dataset"
	"github.com/cognicore/artspect/pkg/artspect/internalerr"
	"github.com/cognicore/artspect/pkg/artspect/pipeline"
)

const retryBackoff = 3 * time.Second

// PromptTemplates allow customization of the prompt text. User must
// contain one %s verb for the contract code.
type PromptTemplates struct {
	System string
	User   string
}

const (
	defaultSystem = "You are an expert reviewer of smart contract code with an eye for creative and artistic qualities."
	defaultUser   = "Rate the artistic merit of the following contract code on a scale of 1 to 3, " +
		"where 1 is purely utilitarian and 3 is distinctly creative. " +
		"Reply with exactly: <score> | <short reason>\n\n%s"
)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	HTTPClient *http.Client
	Prompts    PromptTemplates
	Log        *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke implements pipeline.Adapter. Transport faults are transient;
// a reply that does not match the <score> | <reason> grammar signals a
// content/prompt mismatch, not a service fault, so it is not retried —
// the record keeps its raw content and a nil annotation.
func (c *Client) Invoke(ctx context.Context, in pipeline.Invocation) pipeline.Outcome {
	// A missing endpoint or model is a configuration error, not a
	// service fault: retrying would loop forever.
	if c.BaseURL == "" || c.Model == "" {
		return pipeline.Outcome{Kind: pipeline.Failed,
			Err: fmt.Errorf("%w: llm base URL and model required", internalerr.ErrInvalidConfig)}
	}

	system, user := c.Prompts.System, c.Prompts.User
	if system == "" {
		system = defaultSystem
	}
	if user == "" {
		user = defaultUser
	}

	reply, err := c.Chat(ctx, system, fmt.Sprintf(user, in.Content))
	if err != nil {
		return pipeline.Outcome{Kind: pipeline.Transient, RetryAfter: retryBackoff, Err: err}
	}

	ann, err := ParseReply(reply)
	if err != nil {
		if c.Log != nil {
			c.Log.Warn("malformed classification reply",
				zap.String("key", in.Key), zap.String("reply", reply), zap.Error(err))
		}
		return pipeline.Outcome{Kind: pipeline.Success, Value: in.Content}
	}
	return pipeline.Outcome{Kind: pipeline.Success, Value: in.Content, Annotation: ann}
}

// Chat sends one system/user prompt pair with temperature zero.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages, Temperature: 0})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm: http %d", resp.StatusCode)
	}
	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// ParseReply parses the strict two-field grammar "<score 1..3> | <reason>".
func ParseReply(reply string) (*dataset.Annotation, error) {
	parts := strings.Split(reply, "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: want 2 pipe-delimited fields, got %d", internalerr.ErrMalformedReply, len(parts))
	}
	score, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("%w: non-integer score %q", internalerr.ErrMalformedReply, strings.TrimSpace(parts[0]))
	}
	if score < 1 || score > 3 {
		return nil, fmt.Errorf("%w: score %d outside [1,3]", internalerr.ErrMalformedReply, score)
	}
	return &dataset.Annotation{Score: score, Reason: strings.TrimSpace(parts[1])}, nil
}
