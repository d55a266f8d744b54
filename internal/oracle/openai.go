package oracle

import (
	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/domain"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultModel   = "gpt-3.5-turbo"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// openAIOracle calls the OpenAI chat-completions API. It never retries:
// a failed consultation turn is resubmitted by the user.
type openAIOracle struct {
	client openaigo.Client
	model  string
}

// NewOpenAI builds an Oracle from config. The HTTP client may be nil.
func NewOpenAI(cfg config.OpenAIConfig, httpClient *http.Client) (Oracle, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai config incomplete: api_key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &openAIOracle{
		client: openaigo.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete sends messages as one chat completion request.
func (o *openAIOracle) Complete(ctx context.Context, messages []domain.Message) (*Completion, error) {
	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	out := &Completion{Choices: make([]Choice, 0, len(resp.Choices))}
	for _, ch := range resp.Choices {
		out.Choices = append(out.Choices, Choice{
			Message: domain.AssistantMessage(ch.Message.Content),
		})
	}
	return out, nil
}

func toOpenAIMessages(messages []domain.Message) []openaigo.ChatCompletionMessageParamUnion {
	out := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.MessageRoleSystem:
			out = append(out, openaigo.SystemMessage(m.Content))
		case domain.MessageRoleAssistant:
			out = append(out, openaigo.AssistantMessage(m.Content))
		default:
			out = append(out, openaigo.UserMessage(m.Content))
		}
	}
	return out
}
