package dispatch

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens returns the cl100k_base token count of text, or 0 when the
// encoding is unavailable (for example, offline on first use).
func countTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		encoding = enc
	})
	if encoding == nil || text == "" {
		return 0
	}
	return len(encoding.Encode(text, nil, nil))
}
