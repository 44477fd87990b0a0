package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"telegram-translation-bot/internal/domain"
	"telegram-translation-bot/internal/domain/ports/adapter"
)

var _ adapter.TranslationProvider = (*OpenAIProvider)(nil)

// maxPromptTokens bounds what one translation may cost. Character
// truncation upstream is not enough for CJK-dense text, so the prompt
// is counted before it leaves the process.
const maxPromptTokens = 3000

// OpenAIProvider translates through the Chat Completions API. It is the
// expensive head of the chain and usually configured behind the free
// providers.
type OpenAIProvider struct {
	client openai.Client
	model  string
	enc    *tiktoken.Tiktoken
}

func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return nil, fmt.Errorf("tiktoken: %w", err)
		}
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		enc:    enc,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Translate(ctx context.Context, tr adapter.TranslateRequest) (adapter.TranslateResult, error) {
	source := tr.SourceLang
	if source == "" {
		source = domain.DetectLang(tr.Text)
	}
	system := fmt.Sprintf(
		"You are a translation engine. Translate the user's message from %s to %s. Reply with only the translation, no commentary.",
		domain.LangName(source), domain.LangName(tr.TargetLang),
	)

	if n := len(p.enc.Encode(system+tr.Text, nil, nil)); n > maxPromptTokens {
		return adapter.TranslateResult{}, fmt.Errorf("openai prompt is %d tokens: %w", n, domain.ErrTextTooLong)
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(tr.Text),
		},
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) && apierr.StatusCode == 429 {
			return adapter.TranslateResult{}, fmt.Errorf("openai http 429: %w", domain.ErrProviderRateLimited)
		}
		return adapter.TranslateResult{}, fmt.Errorf("openai: %v: %w", err, domain.ErrProviderUnavailable)
	}
	var text string
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			text = strings.TrimSpace(c.Message.Content)
			break
		}
	}
	if text == "" {
		return adapter.TranslateResult{}, fmt.Errorf("openai no choice content: %w", domain.ErrProviderUnavailable)
	}

	return adapter.TranslateResult{
		Text:       text,
		Provider:   p.Name(),
		SourceLang: source,
		Detected:   tr.SourceLang == "",
	}, nil
}
