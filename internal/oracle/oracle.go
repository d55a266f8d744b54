// Package oracle defines the boundary to the external text-generation service.
package oracle

import (
	"alcyxob/fitness-coach/internal/domain"
	"context"
	"errors"
)

// ErrUnavailable wraps every transport, API or timeout failure of a call.
var ErrUnavailable = errors.New("generation oracle unavailable")

// Choice is one candidate reply.
type Choice struct {
	Message domain.Message `json:"message"`
}

// Completion is the oracle's answer to one request.
type Completion struct {
	Choices []Choice `json:"choices"`
}

// FirstReply returns the content of the first choice.
func (c *Completion) FirstReply() (string, bool) {
	if c == nil || len(c.Choices) == 0 {
		return "", false
	}
	return c.Choices[0].Message.Content, true
}

// Oracle turns an ordered list of role-tagged messages into a reply.
type Oracle interface {
	Complete(ctx context.Context, messages []domain.Message) (*Completion, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, messages []domain.Message) (*Completion, error)

func (f Func) Complete(ctx context.Context, messages []domain.Message) (*Completion, error) {
	return f(ctx, messages)
}
