// internal/auth/password.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash means ADMIN_PASSWORD_HASH is not an argon2id PHC string.
var ErrInvalidHash = errors.New("the encoded hash is not in the correct format")

// ErrIncompatibleVersion means the hash was produced by another argon2 revision.
var ErrIncompatibleVersion = errors.New("incompatible version of argon2")

const hashAlgorithm = "argon2id"

// HashParams are the argon2id cost settings. They are written into every encoded
// hash, so a stored hash keeps verifying after the defaults change.
type HashParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Params is what cmd/hashpw uses for the admin password.
var Params = &HashParams{
	Memory:      64 * 1024,
	Iterations:  5,
	Parallelism: uint8(max(1, runtime.NumCPU()/2)),
	SaltLength:  16,
	KeyLength:   32,
}

// NewParams builds a cost setting with the default salt and key sizes, e.g. a cheap
// one for tests.
func NewParams(memory, iterations uint32, parallelism uint8) *HashParams {
	return &HashParams{
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: max(1, parallelism),
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (p *HashParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// CreateHash hashes password with a fresh salt and returns
// $argon2id$v=19$m=...,t=...,p=...$<salt>$<key>.
func CreateHash(password string, p *HashParams) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	enc := base64.RawStdEncoding
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		hashAlgorithm, argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(p.derive(password, salt))), nil
}

// ComparePasswordAndHash reports whether password matches encodedHash. The keys are
// compared with subtle.ConstantTimeCompare.
func ComparePasswordAndHash(password, encodedHash string) (bool, error) {
	p, salt, want, err := DecodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, p.derive(password, salt)) == 1, nil
}

// DecodeHash splits an encoded hash into its parameters, salt and key.
func DecodeHash(encodedHash string) (*HashParams, []byte, []byte, error) {
	// "", algorithm, version, costs, salt, key
	fields := strings.Split(encodedHash, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != hashAlgorithm {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	p := &HashParams{}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: costs: %v", ErrInvalidHash, err)
	}
	if p.Iterations == 0 || p.Parallelism == 0 {
		return nil, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrInvalidHash)
	}

	salt, err := decodeSegment("salt", fields[4])
	if err != nil {
		return nil, nil, nil, err
	}
	key, err := decodeSegment("key", fields[5])
	if err != nil {
		return nil, nil, nil, err
	}
	p.SaltLength, p.KeyLength = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func decodeSegment(name, s string) ([]byte, error) {
	b, err := base64.RawStdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidHash, name, err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty %s", ErrInvalidHash, name)
	}
	return b, nil
}
