// Package crypto provides the password hashing primitives used for stored
// credentials.
//
//	bcrypt   → $2a$<cost>$...
//	argon2id → $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<hash>
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// NewHasher returns a hasher that produces digests with the named algorithm
// and verifies digests of either supported algorithm, so changing the
// algorithm does not lock out existing accounts.
func NewHasher(algorithm string, bcryptCost int) (*Hasher, error) {
	bc := NewBcryptHasher(bcryptCost)
	a2 := NewArgon2Hasher()

	h := &Hasher{bcrypt: bc, argon2: a2}
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case "", AlgorithmBcrypt:
		h.primary = bc
	case AlgorithmArgon2id:
		h.primary = a2
	default:
		return nil, fmt.Errorf("crypto: unsupported hash algorithm %q", algorithm)
	}
	return h, nil
}

// Hasher hashes with one algorithm and verifies by the digest's prefix.
type Hasher struct {
	primary ports.PasswordHasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

func (h *Hasher) Hash(raw string) (string, error) {
	return h.primary.Hash(raw)
}

// Verify dispatches on the digest prefix. Unknown formats never match.
func (h *Hasher) Verify(raw, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$"+AlgorithmArgon2id+"$"):
		return h.argon2.Verify(raw, digest)
	case isBcryptDigest(digest):
		return h.bcrypt.Verify(raw, digest)
	default:
		return false
	}
}

func isBcryptDigest(digest string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(digest, prefix) {
			return true
		}
	}
	return false
}

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a BcryptHasher. Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash rejects passwords over domain.MaxPasswordBytes with domain.ErrPasswordTooLong.
func (h *BcryptHasher) Hash(raw string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(raw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}

// Argon2Hasher hashes passwords with argon2id.
type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

// NewArgon2Hasher returns an argon2id hasher with time=1, memory=64MiB, threads=4.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		time:    1,
		memory:  64 * 1024,
		threads: 4,
		keyLen:  32,
		saltLen: 16,
	}
}

func (h *Argon2Hasher) Hash(raw string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2id: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(raw), salt, h.time, h.memory, h.threads, h.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in digest.
// Malformed digests never match.
func (h *Argon2Hasher) Verify(raw, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != AlgorithmArgon2id {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	// argon2.IDKey panics on zero time or parallelism.
	if time == 0 || threads == 0 || memory == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	key := argon2.IDKey([]byte(raw), salt, time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}
