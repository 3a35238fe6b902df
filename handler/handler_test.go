package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"content-assist/internal/domain"
	"content-assist/internal/usecase"
)

const idempotencyKey = "550e8400-e29b-41d4-a716-446655440000"

type stubUseCase struct {
	out    usecase.AssistOutput
	err    error
	in     usecase.AssistInput
	called bool
}

func (s *stubUseCase) Assist(_ context.Context, in usecase.AssistInput) (usecase.AssistOutput, error) {
	s.in = in
	s.called = true
	return s.out, s.err
}

type responseBody struct {
	RequestID string         `json:"requestId"`
	Data      map[string]any `json:"data"`
	Code      int            `json:"code"`
	Message   string         `json:"message"`
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/ai/assist",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody(t *testing.T, body string) responseBody {
	t.Helper()
	var v responseBody
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func newTestHandler(t *testing.T, uc Assister) *Handler {
	t.Helper()
	h, err := NewHandler(uc, nil)
	require.NoError(t, err)
	return h
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil, nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.AssistOutput{
		Answer:    domain.Answer{"summary": "Short", "requestId": idempotencyKey},
		RequestID: idempotencyKey,
	}}
	h := newTestHandler(t, uc)

	resp, err := h.Handle(context.Background(), makeEvent(`{"query":"Summarize 7","requestId":"`+idempotencyKey+`"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, usecase.AssistInput{Query: "Summarize 7", RequestID: idempotencyKey}, uc.in)

	out := parseBody(t, resp.Body)
	require.Equal(t, http.StatusCreated, out.Code)
	require.Equal(t, "Success", out.Message)
	require.Equal(t, "Short", out.Data["summary"])
	require.Equal(t, idempotencyKey, out.Data["requestId"])
	require.NotEmpty(t, resp.Headers["x-request-id"])
	require.Equal(t, resp.Headers["x-request-id"], out.RequestID)
}

func TestHandle_UsesProvidedRequestIDHeader_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.AssistOutput{Answer: domain.Answer{"response": "ok"}}}
	h := newTestHandler(t, uc)

	event := makeEvent(`{"query":"hello"}`)
	event.Headers["X-Request-ID"] = "  trace-123 "
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "trace-123", resp.Headers["x-request-id"])
	require.Equal(t, "trace-123", parseBody(t, resp.Body).RequestID)
	// the tracing header is not an idempotency key
	require.Empty(t, uc.in.RequestID)
}

func TestHandle_RejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name    string
		event   events.APIGatewayProxyRequest
		status  int
		message string
	}{
		{"not json", makeEvent(`not-json`), http.StatusBadRequest, "Request body must be a JSON object"},
		{"missing query", makeEvent(`{}`), http.StatusBadRequest, "query must be a non-empty string"},
		{"bad request id", makeEvent(`{"query":"q","requestId":"abc-123"}`), http.StatusBadRequest, "requestId must be a UUID"},
		{"wrong method", events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/ai/assist"}, http.StatusMethodNotAllowed, "Method not allowed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{}
			h := newTestHandler(t, uc)

			resp, err := h.Handle(context.Background(), tc.event)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, uc.called)

			out := parseBody(t, resp.Body)
			require.Equal(t, tc.status, out.Code)
			require.Equal(t, tc.message, out.Message)
			require.Nil(t, out.Data)
		})
	}
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "empty query", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_query"}, status: http.StatusBadRequest, message: "query must be a non-empty string"},
		{name: "invalid request id", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_request_id"}, status: http.StatusBadRequest, message: "requestId must be a UUID"},
		{name: "unknown invalid reason", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "something_new"}, status: http.StatusBadRequest, message: "Invalid request"},
		{name: "rate limited", err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "model_rate_limited"}, status: http.StatusTooManyRequests},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "model_error"}, status: http.StatusBadGateway},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "request_cancelled"}, status: http.StatusInternalServerError, message: "An unexpected error occurred"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, message: "An unexpected error occurred"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, &stubUseCase{err: tc.err})

			resp, err := h.Handle(context.Background(), makeEvent(`{"query":"What is new?"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody(t, resp.Body)
			require.Equal(t, tc.status, out.Code)
			require.Nil(t, out.Data)
			if tc.message != "" {
				require.Equal(t, tc.message, out.Message)
			}
			require.NotContains(t, out.Message, "boom")
		})
	}
}
