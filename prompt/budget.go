package prompt

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// Counter measures serialized context against the configured budget.
// The unit (runes or model tokens) is a deployment choice, not engine logic.
type Counter interface {
	Count(text string) int
}

// RuneCounter measures in runes. It needs no model data and is the default.
type RuneCounter struct{}

func (RuneCounter) Count(text string) int { return utf8.RuneCountInString(text) }

// TokenCounter measures in tiktoken tokens for a given model, so the budget
// lines up with what the completion endpoint actually bills and truncates.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &TokenCounter{enc: enc}, nil
}

func (c *TokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
