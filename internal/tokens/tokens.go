// Package tokens estimates token counts for stream usage metadata.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	loadOnce sync.Once
	encoding *tiktoken.Tiktoken
)

// Count returns the cl100k_base token count of text. When the encoding cannot
// be loaded it falls back to a four-bytes-per-token estimate.
func Count(text string) int {
	if text == "" {
		return 0
	}
	loadOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return estimate(text)
	}
	return len(encoding.Encode(text, nil, nil))
}

func estimate(text string) int {
	return (len(text) + 3) / 4
}
