package evidence

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// SignatureFingerprint returns a hex BLAKE2b-256 digest of a signature
// payload. The payload is trimmed first so re-encoding whitespace does not
// change the fingerprint. Empty signatures have no fingerprint.
func SignatureFingerprint(signature string) string {
	trimmed := strings.TrimSpace(signature)
	if trimmed == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}
