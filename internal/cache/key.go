package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// GetCacheKey returns the cache key for a source file: its cleaned absolute path.
// Falls back to the cleaned input when the path cannot be made absolute.
func GetCacheKey(filePath string) string {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return filepath.Clean(filePath)
	}
	return abs
}

// hashContent returns SHA-256 hash of the file content as hex.
func hashContent(source []byte) string {
	h := sha256.Sum256(source)
	return hex.EncodeToString(h[:])
}
