package voucher

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
)

// maxCodeAttempts bounds collision retries before issuance fails hard.
const maxCodeAttempts = 5

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewCode returns a cryptographically random voucher code: 80 bits encoded as
// 16 base32 characters.
func NewCode() (string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate voucher code: %w", err)
	}
	return codeEncoding.EncodeToString(raw), nil
}
