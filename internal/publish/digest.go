package publish

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// Digest fingerprints the content of doc. LastSync is excluded so that a run
// which fetched identical data yields the same digest.
func Digest(doc bill.Document) (string, error) {
	doc.LastSync = ""
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
