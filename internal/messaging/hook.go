package messaging

import (
	"context"
	"strings"
	"unicode"

	"github.com/parley-chat/parley/internal/models"
)

// Transformer is the pre-persist extension point. It runs once per message
// after ID allocation and before persistence; it may rewrite the record or
// reject it, in which case nothing is persisted. Implementations are
// resolved at startup and must be safe for concurrent use.
type Transformer interface {
	TransformMessage(ctx context.Context, msg *models.Message) (*models.Message, error)
}

// NopTransformer passes messages through unchanged.
type NopTransformer struct{}

func (NopTransformer) TransformMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return msg, nil
}

// Sanitizer strips control characters from message content and trims
// surrounding whitespace. Newlines and tabs survive.
type Sanitizer struct{}

func (Sanitizer) TransformMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, msg.Content)
	msg.Content = strings.TrimSpace(cleaned)
	return msg, nil
}

// Chain runs transformers in order, stopping at the first rejection.
type Chain []Transformer

func (c Chain) TransformMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	var err error
	for _, t := range c {
		msg, err = t.TransformMessage(ctx, msg)
		if err != nil {
			return nil, err
		}
	}
	return msg, nil
}
