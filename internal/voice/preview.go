package voice

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
)

// PreviewCacheKey derives a stable key for a cached voice preview from
// everything that affects its audio: the voice description, the model
// (by base name so a relocated model directory reuses the cache), and
// the sampling parameters.
func PreviewCacheKey(description, modelPath string, temperature, topP float64) string {
	payload := fmt.Sprintf("%s|%s|%.3f|%.3f", description, filepath.Base(modelPath), temperature, topP)
	return fmt.Sprintf("%x", md5.Sum([]byte(payload)))
}

// PreviewCachePath returns the WAV path for a preview cache key inside
// the given cache directory.
func PreviewCachePath(cacheDir, key string) string {
	return filepath.Join(cacheDir, "preview_"+key+".wav")
}
