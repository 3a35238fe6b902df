// Package gemini implements the assist model client on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"content-assist/internal/domain"
)

const DefaultModel = "gemini-2.5-flash"

// generator is the slice of *genai.Models used by Client.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// StatusError carries the HTTP status of a failed Gemini API call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.Code }

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Client struct {
	models generator
	model  string
}

// New builds a client for the Gemini Developer API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key must not be empty")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newClient(client.Models, cfg.Model)
}

func newClient(models generator, model string) (*Client, error) {
	if models == nil {
		return nil, errors.New("gemini: models must not be nil")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model}, nil
}

// Generate runs one GenerateContent call. API failures are returned as
// *StatusError so callers can classify them by status.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error) {
	contents := toContents(req.Contents)
	var config *genai.GenerateContentConfig
	if len(req.Tools) > 0 {
		config = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(req.Tools)}},
		}
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return domain.GenerateResponse{}, &StatusError{Code: apiErr.Code, Err: err}
		}
		return domain.GenerateResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	if resp == nil {
		return domain.GenerateResponse{}, errors.New("gemini: empty response")
	}
	return fromResponse(resp), nil
}

func toContents(msgs []domain.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			var part *genai.Part
			switch {
			case p.ToolCall != nil:
				part = &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   p.ToolCall.ID,
					Name: p.ToolCall.Name,
					Args: p.ToolCall.Arguments,
				}}
			case p.ToolResult != nil:
				part = &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       p.ToolResult.CallID,
					Name:     p.ToolResult.Name,
					Response: p.ToolResult.Payload,
				}}
			default:
				part = genai.NewPartFromText(p.Text)
			}
			part.ThoughtSignature = p.Signature
			parts = append(parts, part)
		}
		role := genai.RoleUser
		if m.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

// fromResponse reads the first candidate's parts directly. Thought parts are
// neither answer text nor replayed.
func fromResponse(resp *genai.GenerateContentResponse) domain.GenerateResponse {
	var out domain.GenerateResponse
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	var text strings.Builder
	content := domain.Message{Role: domain.RoleModel}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		part := domain.Part{Signature: p.ThoughtSignature}
		if p.FunctionCall != nil {
			call := domain.ToolCall{ID: p.FunctionCall.ID, Name: p.FunctionCall.Name, Arguments: p.FunctionCall.Args}
			out.ToolCalls = append(out.ToolCalls, call)
			part.ToolCall = &call
		} else {
			text.WriteString(p.Text)
			part.Text = p.Text
		}
		content.Parts = append(content.Parts, part)
	}
	out.Text = text.String()
	out.Content = &content
	return out
}

func toFunctionDeclarations(decls []domain.ToolDeclaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toSchema(d.Parameters),
		})
	}
	return out
}

func toSchema(s domain.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        schemaType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = toSchema(*s.Items)
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}
