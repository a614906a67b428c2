package invoiceai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

const modelCallTimeout = 60 * time.Second

// AnthropicInvoker submits invoice documents to the Anthropic Messages API.
type AnthropicInvoker struct {
	client anthropic.Client
	model  string
}

func NewAnthropicInvoker(apiKey string, model string) (*AnthropicInvoker, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(model) == "" {
		model = defaultAnthropicModel
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(modelCallTimeout),
	)
	return &AnthropicInvoker{client: client, model: model}, nil
}

func (a *AnthropicInvoker) ModelID() string {
	return a.model
}

// Invoke performs one single-turn call. The document goes by URL reference
// when available; inline base64 is the fallback for unresolvable URLs.
func (a *AnthropicInvoker) Invoke(ctx context.Context, req ModelRequest) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	switch {
	case strings.TrimSpace(req.DocumentURL) != "":
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.URLPDFSourceParam{
			URL: req.DocumentURL,
		}))
	case req.DocumentBase64 != "":
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: req.DocumentBase64,
		}))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("no text content in model response")
}
