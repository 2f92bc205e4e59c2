package script

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var (
	encodersMu sync.Mutex
	encoders   = map[string]*tiktoken.Tiktoken{}
)

// estimateTokens counts prompt tokens locally. Zero means the encoding
// could not be loaded.
func estimateTokens(model, text string) int {
	enc := encoderFor(model)
	if enc == nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

func encoderFor(model string) *tiktoken.Tiktoken {
	encodersMu.Lock()
	defer encodersMu.Unlock()
	if enc, ok := encoders[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil
		}
	}
	encoders[model] = enc
	return enc
}
