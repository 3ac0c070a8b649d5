package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key computes a deterministic cache key for a minify job from its format
// name and raw input bytes. The teacher hashed model+messages+tools to
// dedupe LLM calls; a minify job has no such structure, so the key
// collapses to sha256(format || 0x00 || input).
func Key(format string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(input)
	return hex.EncodeToString(h.Sum(nil))
}
