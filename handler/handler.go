package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"content-assist/internal/usecase"
)

const (
	requestIDHeader      = "x-request-id"
	successMessage       = "Success"
	safeInternalMessage  = "An unexpected error occurred"
	invalidBodyMessage   = "Request body must be a JSON object"
	methodNotAllowedText = "Method not allowed"
)

type Assister interface {
	Assist(ctx context.Context, in usecase.AssistInput) (usecase.AssistOutput, error)
}

// assistRequest is the POST /ai/assist body. RequestID is the optional
// idempotency key returned by a previous call.
type assistRequest struct {
	Query     string `json:"query" validate:"required,min=1"`
	RequestID string `json:"requestId" validate:"omitempty,uuid"`
}

// envelope is the response shape shared by every endpoint of the platform.
type envelope struct {
	RequestID string `json:"requestId"`
	Data      any    `json:"data"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
}

type Handler struct {
	assist   Assister
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(assist Assister, logger *slog.Logger) (*Handler, error) {
	if assist == nil {
		return nil, errors.New("handler: assist use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{assist: assist, validate: validator.New(), logger: logger}, nil
}

// Handle serves POST /ai/assist from an API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	reqID := headerValue(event.Headers, requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	logger := h.logger.With("http_request_id", reqID, "method", event.HTTPMethod, "path", event.Path)

	if event.HTTPMethod != "" && event.HTTPMethod != http.MethodPost {
		return h.respondError(logger, reqID, http.StatusMethodNotAllowed, methodNotAllowedText, nil), nil
	}

	var req assistRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return h.respondError(logger, reqID, http.StatusBadRequest, invalidBodyMessage, err), nil
	}
	if err := h.validate.Struct(req); err != nil {
		return h.respondError(logger, reqID, http.StatusBadRequest, validationMessage(err), err), nil
	}

	out, err := h.assist.Assist(ctx, usecase.AssistInput{Query: req.Query, RequestID: req.RequestID})
	if err != nil {
		status, message := mapError(err)
		return h.respondError(logger, reqID, status, message, err), nil
	}

	logger.Info("assist served", "status", http.StatusCreated, "assist_request_id", out.RequestID, "cached", out.Cached)
	return respond(reqID, http.StatusCreated, envelope{
		RequestID: reqID,
		Data:      out.Answer,
		Code:      http.StatusCreated,
		Message:   successMessage,
	}), nil
}

func (h *Handler) respondError(logger *slog.Logger, reqID string, status int, message string, err error) events.APIGatewayProxyResponse {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "err", err)
	} else {
		logger.Warn("request rejected", "status", status, "message", message, "err", err)
	}
	return respond(reqID, status, envelope{
		RequestID: reqID,
		Data:      nil,
		Code:      status,
		Message:   message,
	})
}

func respond(reqID string, status int, body envelope) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = fmt.Appendf(nil, `{"requestId":%q,"data":null,"code":500,"message":%q}`, reqID, safeInternalMessage)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			requestIDHeader: reqID,
		},
		Body: string(raw),
	}
}

func mapError(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, safeInternalMessage
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, invalidInputMessage(ucErr.Reason)
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, "AI provider rate limit exceeded, please retry later"
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, "AI provider request failed"
	default:
		return http.StatusInternalServerError, safeInternalMessage
	}
}

// invalidInputMessage turns a usecase rejection reason into client-facing text.
func invalidInputMessage(reason string) string {
	switch reason {
	case "empty_query":
		return "query must be a non-empty string"
	case "invalid_request_id":
		return "requestId must be a UUID"
	default:
		return "Invalid request"
	}
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "Query":
			msgs = append(msgs, "query must be a non-empty string")
		case "RequestID":
			msgs = append(msgs, "requestId must be a UUID")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, ". ")
}

// headerValue looks up a header case-insensitively and trims it.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
