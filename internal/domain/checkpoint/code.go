package checkpoint

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// ManualCodeLength is the fixed length of a checkpoint manual code.
const ManualCodeLength = 9

// SanitizeManualEntry strips non-digits from typed input and caps it at
// ManualCodeLength.
func SanitizeManualEntry(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() == ManualCodeLength {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateCode checks that code is exactly ManualCodeLength ASCII digits.
func ValidateCode(code string) error {
	if len(code) != ManualCodeLength {
		return ErrMalformedCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrMalformedCode
		}
	}
	return nil
}

// IsCodeShaped reports whether s could be a checkpoint code.
func IsCodeShaped(s string) bool {
	return ValidateCode(s) == nil
}

// GenerateCode returns a random code with no leading zero.
func GenerateCode() (string, error) {
	low := big.NewInt(100_000_000)
	span := big.NewInt(900_000_000)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}
