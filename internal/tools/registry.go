// Package tools declares the capabilities advertised to the model and
// executes the tool calls it emits against the content collaborators.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"content-assist/internal/domain"
)

// Name identifies a tool. The set is closed: every Name has a declaration in
// the table below and a branch in Registry.Dispatch.
type Name string

const (
	GetContentByID Name = "get_content_by_id"
	SearchContent  Name = "search_content"
)

const (
	searchLimit          = 10
	searchOffset         = 0
	descriptionMaxLength = 200
)

// Tool-result error messages fed back to the model.
const (
	errInvalidContentID = "content_id is required and must be an integer"
	errContentNotFound  = "Content not found"
	errSearchFailed     = "Search failed"
)

var declarations = []domain.ToolDeclaration{
	{
		Name:        string(GetContentByID),
		Description: "Fetches full content by its ID. Use this when the user asks to summarize or get details of specific content.",
		Parameters: domain.Schema{
			Type: "object",
			Properties: map[string]domain.Schema{
				"content_id": {Type: "integer", Description: "The numeric ID of the content to fetch"},
			},
			Required: []string{"content_id"},
		},
	},
	{
		Name:        string(SearchContent),
		Description: "Searches for content by keyword and optional tags. Use for finding content, recommendations, or discovery.",
		Parameters: domain.Schema{
			Type: "object",
			Properties: map[string]domain.Schema{
				"query": {Type: "string", Description: "Search query (keywords)"},
				"tags": {
					Type:        "array",
					Items:       &domain.Schema{Type: "string"},
					Description: "Optional tags to filter by",
				},
			},
			Required: []string{"query"},
		},
	},
}

// ContentLookup fetches a single content item. Implementations return an
// error (typically wrapping a not-found sentinel) when the id is absent.
type ContentLookup interface {
	FindByID(ctx context.Context, id int64) (domain.Content, error)
}

// ContentSearch runs a keyword/tag search over published content.
type ContentSearch interface {
	Search(ctx context.Context, query string, tags []string, limit, offset int) ([]domain.Content, error)
}

// Registry dispatches tool calls by name. It is safe for concurrent use as
// long as the collaborators are.
type Registry struct {
	lookup ContentLookup
	search ContentSearch
	logger *slog.Logger
}

func NewRegistry(lookup ContentLookup, search ContentSearch, logger *slog.Logger) (*Registry, error) {
	if lookup == nil {
		return nil, errors.New("tools: content lookup must not be nil")
	}
	if search == nil {
		return nil, errors.New("tools: content search must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{lookup: lookup, search: search, logger: logger}, nil
}

// Declarations returns a copy of the tool table.
func (r *Registry) Declarations() []domain.ToolDeclaration {
	out := make([]domain.ToolDeclaration, len(declarations))
	copy(out, declarations)
	return out
}

// Dispatch executes call and always returns a result: validation failures,
// missing content and unknown tools become {"error": ...} payloads.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	var payload map[string]any
	switch Name(call.Name) {
	case GetContentByID:
		payload = r.getContentByID(ctx, call.Arguments)
	case SearchContent:
		payload = r.searchContent(ctx, call.Arguments)
	default:
		payload = errorPayload(fmt.Sprintf("Unknown function: %s", call.Name))
	}
	return domain.ToolResult{CallID: call.ID, Name: call.Name, Payload: payload}
}

func (r *Registry) getContentByID(ctx context.Context, args map[string]any) map[string]any {
	id, ok := contentIDArg(args["content_id"])
	if !ok {
		return errorPayload(errInvalidContentID)
	}
	c, err := r.lookup.FindByID(ctx, id)
	if err != nil {
		r.logger.Debug("tool content lookup failed", "tool", GetContentByID, "content_id", id, "err", err)
		return errorPayload(errContentNotFound)
	}
	return map[string]any{
		"id":          c.ID,
		"title":       c.Title,
		"description": c.Description,
		"tags":        nonNilTags(c.Tags),
		"status":      c.Status,
	}
}

func (r *Registry) searchContent(ctx context.Context, args map[string]any) map[string]any {
	query, _ := args["query"].(string)
	tags := stringSliceArg(args["tags"])

	items, err := r.search.Search(ctx, query, tags, searchLimit, searchOffset)
	if err != nil {
		r.logger.Warn("tool content search failed", "tool", SearchContent, "err", err)
		return errorPayload(errSearchFailed)
	}

	results := make([]map[string]any, 0, len(items))
	for _, c := range items {
		results = append(results, map[string]any{
			"id":          c.ID,
			"title":       c.Title,
			"description": truncate(c.Description, descriptionMaxLength),
			"tags":        nonNilTags(c.Tags),
		})
	}
	return map[string]any{"results": results}
}

func errorPayload(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
