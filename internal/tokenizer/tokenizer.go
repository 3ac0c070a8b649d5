// Package tokenizer reports the approximate LLM prompt-token count of a
// piece of text, via tiktoken-go. It is presentational only: `minify
// tokens` uses it to show how much a minification saved in token terms,
// but it never influences minification output. Kept close to the
// teacher's own Tokenizer (a cached tiktoken encoder behind sync.Once),
// trimmed from per-model chat-message billing down to plain text counts
// since the minify CLI has no notion of a target model.
package tokenizer

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens using the cl100k_base tiktoken encoding, the
// one shared by the broadest range of current chat models. The encoder
// is initialised once and cached for the process lifetime.
type Tokenizer struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// New creates a new Tokenizer instance.
func New() *Tokenizer {
	return &Tokenizer{}
}

func (t *Tokenizer) encoder() (*tiktoken.Tiktoken, error) {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding("cl100k_base")
	})
	return t.enc, t.err
}

// Count returns the number of cl100k_base tokens in text. It returns 0
// if the encoder failed to initialise.
func (t *Tokenizer) Count(text string) int {
	enc, err := t.encoder()
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}
