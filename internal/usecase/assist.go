package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-assist/internal/domain"
	"content-assist/internal/retry"
)

// maxModelCalls bounds the model invocations of one Assist call, the initial
// call included. It is a termination guarantee and is not configurable.
const maxModelCalls = 5

const defaultCacheTTL = 600 * time.Second

type ModelClient interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error)
}

type ToolDispatcher interface {
	Declarations() []domain.ToolDeclaration
	Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult
}

type AnswerCache interface {
	Get(ctx context.Context, requestID string) (domain.Answer, bool)
	Set(ctx context.Context, requestID string, body domain.Answer, ttl time.Duration) error
}

type AssistService struct {
	model    ModelClient
	tools    ToolDispatcher
	cache    AnswerCache
	retry    retry.Policy
	cacheTTL time.Duration
	logger   *slog.Logger
}

type AssistInput struct {
	Query     string
	RequestID string
}

type AssistOutput struct {
	Answer    domain.Answer
	RequestID string
	Cached    bool
}

type AssistOptions struct {
	Retry    retry.Policy
	CacheTTL time.Duration
	Logger   *slog.Logger
}

func NewAssistService(model ModelClient, tools ToolDispatcher, cache AnswerCache, opts AssistOptions) (*AssistService, error) {
	if model == nil {
		return nil, errors.New("usecase: model client must not be nil")
	}
	if tools == nil {
		return nil, errors.New("usecase: tool dispatcher must not be nil")
	}
	if cache == nil {
		return nil, errors.New("usecase: answer cache must not be nil")
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AssistService{
		model:    model,
		tools:    tools,
		cache:    cache,
		retry:    opts.Retry,
		cacheTTL: opts.CacheTTL,
		logger:   opts.Logger,
	}, nil
}

// Assist answers query, running the tool-call loop against the model. A
// caller-supplied request id makes the call idempotent for the cache TTL.
func (s *AssistService) Assist(ctx context.Context, in AssistInput) (AssistOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return AssistOutput{}, newError(ErrorInvalidInput, "empty_query", nil)
	}
	callerID := strings.TrimSpace(in.RequestID)
	if callerID != "" {
		if _, err := uuid.Parse(callerID); err != nil {
			return AssistOutput{}, newError(ErrorInvalidInput, "invalid_request_id", err)
		}
		if body, ok := s.cache.Get(ctx, callerID); ok {
			s.logger.Info("assist served from cache", "request_id", callerID)
			return AssistOutput{Answer: body.WithRequestID(callerID), RequestID: callerID, Cached: true}, nil
		}
	}
	requestID := callerID
	if requestID == "" {
		requestID = newUUID()
	}
	logger := s.logger.With("request_id", requestID)

	decls := s.tools.Declarations()
	contents := buildInitialConversation(in.Query)
	resp, err := s.generate(ctx, contents, decls)
	if err != nil {
		return AssistOutput{}, modelError(err)
	}
	calls := 1
	for len(resp.ToolCalls) > 0 && calls < maxModelCalls {
		call := resp.ToolCalls[0]
		if len(resp.ToolCalls) > 1 {
			logger.Debug("ignoring extra tool calls", "count", len(resp.ToolCalls)-1)
		}
		result := s.tools.Dispatch(ctx, call)
		logger.Debug("tool dispatched", "tool", call.Name, "iteration", calls)

		if resp.Content != nil {
			contents = append(contents, dispatchedTurn(*resp.Content))
		}
		contents = append(contents, toolResultMessage(result))

		resp, err = s.generate(ctx, contents, decls)
		if err != nil {
			return AssistOutput{}, modelError(err)
		}
		calls++
	}
	if len(resp.ToolCalls) > 0 {
		logger.Warn("tool-call cap reached, using last response", "model_calls", calls)
	}

	body := parseAnswer(resp.Text)
	if err := s.cache.Set(ctx, requestID, body, s.cacheTTL); err != nil {
		logger.Warn("assist cache write failed", "err", err)
	}
	logger.Info("assist completed", "model_calls", calls)
	return AssistOutput{Answer: body.WithRequestID(requestID), RequestID: requestID}, nil
}

// generate issues one model invocation through the retry policy. Every
// attempt sends the same conversation snapshot.
func (s *AssistService) generate(ctx context.Context, contents []domain.Message, decls []domain.ToolDeclaration) (domain.GenerateResponse, error) {
	req := domain.GenerateRequest{Contents: slices.Clone(contents), Tools: decls}
	var resp domain.GenerateResponse
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = s.model.Generate(ctx, req)
		return err
	})
	return resp, err
}

func modelError(err error) *Error {
	if status, ok := retry.StatusCode(err); ok && status == http.StatusTooManyRequests {
		return newError(ErrorRateLimited, "model_rate_limited", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorInternal, "request_cancelled", err)
	}
	return newError(ErrorUpstream, "model_error", err)
}

var newUUID = func() string {
	return uuid.NewString()
}
