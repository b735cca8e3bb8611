package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mailassist/internal/model"
	"mailassist/pkg/circuitbreaker"
	pkgconfig "mailassist/pkg/config"
	"mailassist/pkg/logger"
	"mailassist/pkg/metrics"
	"mailassist/pkg/trace"
	"mailassist/pkg/util"

	"go.uber.org/zap"
)

const (
	emailAssistantSystem = "You are a helpful email assistant. Answer the user's question based on the following email content."
	inboxAssistantSystem = "You are a helpful email assistant. Answer the user's question based on the following summary of their inbox. Refer to emails by sender and subject."
	draftAssistantSystem = "You are a helpful email assistant. Your goal is to draft email replies."
)

// GeminiClient 通过 generateContent REST 接口调用 Gemini，带熔断器和超时
type GeminiClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	cb          *circuitbreaker.CircuitBreaker
	logger      *zap.Logger
}

func NewGeminiClient(cfg pkgconfig.LLMConfig, log *zap.Logger) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.APIKey == "" {
		log.Warn("LLM API key not configured, model calls will fail")
	}

	// 连续失败3次后打开，30秒后半开探测
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("LLM circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &GeminiClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		// 超时由每次调用的 context 控制
		httpClient: &http.Client{},
		cb:         circuitbreaker.NewCircuitBreaker(cbConfig),
		logger:     log,
	}
}

// CircuitState 熔断器当前状态：closed、open 或 half_open
func (c *GeminiClient) CircuitState() string {
	return c.cb.GetState().String()
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// complete 一次完整的模型调用；operation 用于指标和日志
func (c *GeminiClient) complete(ctx context.Context, operation, system, user string, wantJSON bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var text string
	err := c.cb.ExecuteContext(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.call(ctx, system, user, wantJSON)
		return callErr
	})

	metrics.RecordAgentCallLatency(operation, util.ClassifyAgentError(err), time.Since(start))
	if err != nil {
		logger.WithTrace(ctx, c.logger).Warn("LLM call failed",
			zap.String("operation", operation),
			zap.String("error_type", util.ClassifyAgentError(err)),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) call(ctx context.Context, system, user string, wantJSON bool) (string, error) {
	body := generateRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: user}},
		}},
		GenerationConfig: generationConfig{Temperature: c.temperature},
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if wantJSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	// 传播 trace_id
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName(), traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call agent service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("agent service returned error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode agent response: %w", err)
	}

	// 只取第一个候选
	var sb strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("agent returned empty response")
	}
	return text, nil
}

func promptUserText(content string) string {
	return "Email Content:\n" + content
}

func (c *GeminiClient) Generate(ctx context.Context, req PromptRequest) (string, bool) {
	text, err := c.complete(ctx, "generate", req.Instructions, promptUserText(req.Content), false)
	if err != nil {
		return "", false
	}
	return text, true
}

func (c *GeminiClient) ExtractActionItems(ctx context.Context, req PromptRequest) ([]model.ActionItem, bool) {
	text, err := c.complete(ctx, "action_items", req.Instructions, promptUserText(req.Content), true)
	if err != nil {
		return nil, false
	}
	return parseActionItems(text), true
}

func (c *GeminiClient) ChatWithEmail(ctx context.Context, emailContent, question string) string {
	user := fmt.Sprintf("Email Content:\n%s\n\nQuestion: %s", emailContent, question)
	text, err := c.complete(ctx, "chat_email", emailAssistantSystem, user, false)
	if err != nil {
		return "Error: " + err.Error()
	}
	return text
}

func (c *GeminiClient) ChatWithInbox(ctx context.Context, inboxSummary, question string) string {
	user := fmt.Sprintf("Inbox:\n%s\n\nQuestion: %s", inboxSummary, question)
	text, err := c.complete(ctx, "chat_inbox", inboxAssistantSystem, user, false)
	if err != nil {
		return "Error: " + err.Error()
	}
	return text
}

func (c *GeminiClient) GenerateDraftReply(ctx context.Context, emailContent, instructions string) string {
	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultDraftInstructions
	}
	user := fmt.Sprintf("Email Content:\n%s\n\nInstructions: %s\n\nDraft Reply:", emailContent, instructions)
	text, err := c.complete(ctx, "draft_reply", draftAssistantSystem, user, false)
	if err != nil {
		return "Error generating draft: " + err.Error()
	}
	return text
}
