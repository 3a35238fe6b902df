package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"content-assist/internal/domain"
)

const noResponseText = "No response generated"

var fencedBlock = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")

// parseAnswer turns the model's final text into the structured answer. It
// never fails: text that is not a single JSON object is returned under
// "response".
func parseAnswer(raw string) domain.Answer {
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.Answer{"response": noResponseText}
	}
	body, err := decodeObject(stripFence(text))
	if err != nil {
		return domain.Answer{"response": text}
	}
	delete(body, domain.RequestIDField)
	return body
}

func stripFence(text string) string {
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return strings.TrimSpace(m[1])
}

func decodeObject(s string) (domain.Answer, error) {
	var out map[string]any
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("usecase: decode answer: %w", err)
	}
	if out == nil {
		return nil, errors.New("usecase: decode answer: not an object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, errors.New("usecase: decode answer: multiple JSON values")
		}
		return nil, fmt.Errorf("usecase: decode answer trailing data: %w", err)
	}
	return domain.Answer(out), nil
}
