// internal/lobby/invite.go
package lobby

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// InviteCodeLength is the fixed length of an invite code.
	InviteCodeLength = 6
	inviteAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var alphabetSize = big.NewInt(int64(len(inviteAlphabet)))

// NewInviteCode draws a code uniformly from A-Z0-9.
func NewInviteCode() (string, error) {
	var b strings.Builder
	b.Grow(InviteCodeLength)
	for i := 0; i < InviteCodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode upper-cases a code typed by a user and strips surrounding space.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the invite code shape.
func ValidCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(inviteAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
