package gemini

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator approximates token counts when the API omits usage data.
// Gemini does not publish its tokenizer, so a BPE encoding is used as a proxy.
type TokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTokenEstimator loads encoding. When it cannot be loaded the estimator
// falls back to one token per four characters.
func NewTokenEstimator(encoding string, logger *slog.Logger) *TokenEstimator {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		if logger != nil {
			logger.Warn("token encoding unavailable, using character heuristic", "encoding", encoding, "error", err)
		}
		return &TokenEstimator{}
	}
	return &TokenEstimator{enc: enc}
}

// Count implements coach.TokenEstimator.
func (e *TokenEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e == nil || e.enc == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(e.enc.EncodeOrdinary(text))
}
