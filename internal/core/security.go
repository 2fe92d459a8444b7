// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams pins the Argon2id cost for new hashes. Stored hashes carry
// their own params, so these can be raised without invalidating logins.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

var defaultArgon = argonParams{
	memory:  64 * 1024,
	time:    1,
	threads: 4,
	keyLen:  32,
	saltLen: 16,
}

func HashPassword(password string) (string, error) {
	p := defaultArgon

	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// dummyHash gives failed lookups a real verification to run so a missing
// account costs the same wall time as a wrong password.
var dummyHash string

func init() {
	hash, err := HashPassword("timing-equalizer")
	if err != nil {
		panic(fmt.Sprintf("security: dummy hash: %v", err))
	}
	dummyHash = hash
}

// VerifyPasswordTimingSafe verifies a password against a stored hash, or
// against the dummy hash when encodedHash is nil or empty. It returns a
// replacement hash when the stored one was minted with weaker params.
func VerifyPasswordTimingSafe(
	password string,
	encodedHash *string,
) (bool, string, error) {
	hash := dummyHash
	missing := encodedHash == nil || *encodedHash == ""
	if !missing {
		hash = *encodedHash
	}

	valid, err := verifyPassword(password, hash)
	if missing {
		return false, "", nil
	}
	if err != nil || !valid {
		return false, "", err
	}

	if needsRehash(hash) {
		newHash, hashErr := HashPassword(password)
		if hashErr != nil {
			// The password already verified; a failed rehash can wait
			// for the next login.
			return true, "", nil
		}
		return true, newHash, nil
	}
	return true, "", nil
}

func verifyPassword(password, encodedHash string) (bool, error) {
	p, salt, key, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey(
		[]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func parseHash(encodedHash string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("hash version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("hash params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decode key: %w", err)
	}

	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func needsRehash(encodedHash string) bool {
	p, _, _, err := parseHash(encodedHash)
	if err != nil {
		return true
	}
	return p.memory != defaultArgon.memory ||
		p.time != defaultArgon.time ||
		p.threads != defaultArgon.threads ||
		p.keyLen != defaultArgon.keyLen
}

// GenerateRefreshToken mints an opaque session token. Only its SHA-256
// digest is ever stored.
func GenerateRefreshToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
