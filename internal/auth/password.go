// Package auth provides password hashing and TOTP multi-factor
// verification for the Catalog's User records. The wire contract is
// unchanged from the original design: a client always sends the
// plaintext password; only the server's internal storage format is
// upgraded, per the Open Question resolution in SPEC_FULL.md §11.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptPrefix = "scrypt"
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

// HashPassword produces the current on-disk digest format for a
// plaintext password: scrypt$N$r$p$salt$hash, all base64-encoded
// except the cost parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("auth: deriving key: %w", err)
	}

	return fmt.Sprintf("%s$%d$%d$%d$%s$%s",
		scryptPrefix, scryptN, scryptR, scryptP,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// LegacySHA256 reproduces the original system's lower-hex SHA-256
// digest of the plaintext password, used only to recognize and
// upgrade pre-existing accounts created before the scrypt migration.
func LegacySHA256(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword checks password against stored, which may be either
// the current scrypt format or a legacy lower-hex SHA-256 digest. It
// reports whether the password matched and whether stored should be
// upgraded to the scrypt format (true only on a successful legacy
// match).
func VerifyPassword(password, stored string) (ok bool, needsUpgrade bool) {
	if strings.HasPrefix(stored, scryptPrefix+"$") {
		return verifyScrypt(password, stored), false
	}
	// Legacy path: constant-time hex comparison against SHA-256.
	legacy := LegacySHA256(password)
	if subtle.ConstantTimeCompare([]byte(legacy), []byte(stored)) == 1 {
		return true, true
	}
	return false, false
}

func verifyScrypt(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[0] != scryptPrefix {
		return false
	}
	n, err1 := strconv.Atoi(parts[1])
	r, err2 := strconv.Atoi(parts[2])
	p, err3 := strconv.Atoi(parts[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got, err := scrypt.Key([]byte(password), salt, n, r, p, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}
