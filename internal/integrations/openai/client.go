// Package openai implements the assist model client against OpenAI-compatible
// Chat Completions endpoints with function calling.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"content-assist/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolSpec    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolSpec struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Parameters  domain.Schema `json:"parameters"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name string `json:"name"`
	// Arguments is a JSON-encoded object.
	Arguments string `json:"arguments"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused OpenAI-compatible client for chat completions with tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	model      string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 30s timeout if none was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// Generate sends the conversation and tool declarations and normalizes the
// first choice. Non-2xx responses are returned as *HTTPStatusError.
func (c *Client) Generate(ctx context.Context, in domain.GenerateRequest) (domain.GenerateResponse, error) {
	messages, err := toChatMessages(in.Contents)
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    toToolSpecs(in.Tools),
	})
	if err != nil {
		return domain.GenerateResponse{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return domain.GenerateResponse{}, fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.GenerateResponse{}, fmt.Errorf("openai: request failed: %w", err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return domain.GenerateResponse{}, fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(payload.Choices) == 0 {
		return domain.GenerateResponse{}, errors.New("openai: no choices in response")
	}
	return fromChatMessage(payload.Choices[0].Message)
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func toToolSpecs(decls []domain.ToolDeclaration) []toolSpec {
	if len(decls) == 0 {
		return nil
	}
	out := make([]toolSpec, 0, len(decls))
	for _, d := range decls {
		out = append(out, toolSpec{
			Type: "function",
			Function: functionSpec{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

// toChatMessages maps the conversation onto chat roles. Model turns become
// assistant messages; tool results become tool messages answering the call id.
// Tool calls with no result anywhere in the conversation are dropped, since
// the endpoint rejects an assistant message with unanswered call ids.
func toChatMessages(contents []domain.Message) ([]chatMessage, error) {
	answered := make(map[string]bool)
	for _, m := range contents {
		for _, p := range m.Parts {
			if p.ToolResult != nil {
				answered[p.ToolResult.CallID] = true
			}
		}
	}

	out := make([]chatMessage, 0, len(contents))
	for _, m := range contents {
		var text strings.Builder
		var calls []toolCall
		for _, p := range m.Parts {
			switch {
			case p.ToolResult != nil:
				payload, err := json.Marshal(p.ToolResult.Payload)
				if err != nil {
					return nil, fmt.Errorf("openai: marshal tool result %q: %w", p.ToolResult.Name, err)
				}
				content := string(payload)
				out = append(out, chatMessage{Role: "tool", Content: &content, ToolCallID: p.ToolResult.CallID})
			case p.ToolCall != nil:
				if !answered[p.ToolCall.ID] {
					continue
				}
				args, err := json.Marshal(p.ToolCall.Arguments)
				if err != nil {
					return nil, fmt.Errorf("openai: marshal tool call %q: %w", p.ToolCall.Name, err)
				}
				calls = append(calls, toolCall{
					ID:       p.ToolCall.ID,
					Type:     "function",
					Function: functionCall{Name: p.ToolCall.Name, Arguments: string(args)},
				})
			default:
				text.WriteString(p.Text)
			}
		}
		if text.Len() == 0 && len(calls) == 0 {
			continue
		}
		msg := chatMessage{Role: chatRole(m.Role), ToolCalls: calls}
		if text.Len() > 0 {
			s := text.String()
			msg.Content = &s
		}
		out = append(out, msg)
	}
	return out, nil
}

func chatRole(r domain.Role) string {
	if r == domain.RoleModel {
		return "assistant"
	}
	return "user"
}

func fromChatMessage(m chatMessage) (domain.GenerateResponse, error) {
	var resp domain.GenerateResponse
	content := &domain.Message{Role: domain.RoleModel}
	if m.Content != nil {
		resp.Text = *m.Content
		if resp.Text != "" {
			content.Parts = append(content.Parts, domain.Part{Text: resp.Text})
		}
	}
	for _, tc := range m.ToolCalls {
		args, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			return domain.GenerateResponse{}, fmt.Errorf("openai: tool call %q: %w", tc.Function.Name, err)
		}
		call := domain.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args}
		resp.ToolCalls = append(resp.ToolCalls, call)
		content.Parts = append(content.Parts, domain.Part{ToolCall: &call})
	}
	if len(content.Parts) > 0 {
		resp.Content = content
	}
	return resp, nil
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
