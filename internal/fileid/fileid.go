// Package fileid derives document ids for files synced from watched directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// Prefix marks ids that belong to a file on disk rather than an ingested request.
const Prefix = "file:"

// ForPath resolves path to its absolute, cleaned form and returns it together with the
// document id for that file. The same file always maps to the same id.
func ForPath(path string) (abs, id string, err error) {
	abs, err = filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256([]byte(abs))
	return abs, Prefix + hex.EncodeToString(sum[:]), nil
}
