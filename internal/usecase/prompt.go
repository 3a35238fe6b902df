package usecase

import (
	"strings"

	"content-assist/internal/domain"
)

const userQueryLabel = "\n\nUser query: "

func buildSystemPrompt() string {
	return strings.Join([]string{
		"You are a helpful assistant for a content platform. You can:",
		"- Summarize content by ID (use get_content_by_id with the content ID)",
		"- Search for content by keyword or tags (use search_content)",
		"- Provide contextual recommendations based on user queries",
		"",
		"Always respond with valid JSON only. Do not wrap in markdown code blocks.",
		outputContract(),
		"Be concise and helpful.",
	}, "\n")
}

func outputContract() string {
	return "When summarizing, return: {\"summary\": \"...\", \"contentId\": <number>}.\n" +
		"When searching/recommending, return: {\"results\": [...], \"message\": \"...\"}."
}

// buildInitialConversation embeds the query verbatim after the instruction in
// a single user turn.
func buildInitialConversation(query string) []domain.Message {
	return []domain.Message{
		domain.TextMessage(domain.RoleUser, buildSystemPrompt()+userQueryLabel+query),
	}
}

// toolResultMessage is the synthetic user turn that feeds a tool result back.
func toolResultMessage(result domain.ToolResult) domain.Message {
	return domain.Message{
		Role:  domain.RoleUser,
		Parts: []domain.Part{{ToolResult: &result}},
	}
}

// dispatchedTurn returns the model turn with every tool call after the first
// removed, so the replayed turn only carries the call that gets a result.
func dispatchedTurn(turn domain.Message) domain.Message {
	out := domain.Message{Role: turn.Role, Parts: make([]domain.Part, 0, len(turn.Parts))}
	seenCall := false
	for _, p := range turn.Parts {
		if p.ToolCall != nil {
			if seenCall {
				continue
			}
			seenCall = true
		}
		out.Parts = append(out.Parts, p)
	}
	return out
}
