package rooms

import (
	"math/rand/v2"
	"strings"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// codeGroupLen is the length of each half of a room code.
const codeGroupLen = 4

// generateCode returns a fresh room code in XXXX-XXXX form.
func generateCode(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(2*codeGroupLen + 1)
	for i := 0; i < 2*codeGroupLen; i++ {
		if i == codeGroupLen {
			b.WriteByte('-')
		}
		b.WriteByte(codeAlphabet[rng.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// Normalize maps a room code to its canonical spelling. Applied at every
// lookup boundary so code case never matters.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
