// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// PasswordParams are the argon2id cost settings encoded into every stored
// member password hash.
type PasswordParams struct {
	Memory  uint32
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

var DefaultPasswordParams = PasswordParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

func (p PasswordParams) String() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.Memory, p.Time, p.Threads)
}

func (p PasswordParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// PasswordCheck is the outcome of verifying a login attempt. Upgraded holds
// a fresh hash when the stored one was made with outdated params.
type PasswordCheck struct {
	Match    bool
	Upgraded string
}

func HashPassword(password string) (string, error) {
	return hashWith(DefaultPasswordParams, password)
}

func hashWith(p PasswordParams, password string) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	enc := base64.RawStdEncoding
	return strings.Join([]string{
		"",
		"argon2id",
		fmt.Sprintf("v=%d", argon2.Version),
		p.String(),
		enc.EncodeToString(salt),
		enc.EncodeToString(p.derive(password, salt)),
	}, "$"), nil
}

func VerifyPassword(password, encoded string) (bool, error) {
	stored, err := parseHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := stored.params.derive(password, stored.salt)
	return subtle.ConstantTimeCompare(stored.key, candidate) == 1, nil
}

// CheckPassword verifies password against encoded and reports an upgraded
// hash when the stored params differ from DefaultPasswordParams. A failed
// upgrade is ignored since the match itself already succeeded.
func CheckPassword(password, encoded string) (PasswordCheck, error) {
	ok, err := VerifyPassword(password, encoded)
	if err != nil || !ok {
		return PasswordCheck{}, err
	}

	check := PasswordCheck{Match: true}
	if stale(encoded) {
		if upgraded, err := HashPassword(password); err == nil {
			check.Upgraded = upgraded
		}
	}
	return check, nil
}

var decoyHash = sync.OnceValue(func() string {
	h, err := HashPassword("pamoja-decoy-credential")
	if err != nil {
		panic(fmt.Sprintf("security: build decoy hash: %v", err))
	}
	return h
})

// CheckPasswordConstantTime behaves like CheckPassword but burns the same
// argon2 work when there is no stored hash, so an unknown email costs as
// much as a wrong password.
func CheckPasswordConstantTime(password, encoded string) (PasswordCheck, error) {
	if encoded == "" {
		_, _ = CheckPassword(password, decoyHash())
		return PasswordCheck{}, nil
	}
	return CheckPassword(password, encoded)
}

type storedHash struct {
	params PasswordParams
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (*storedHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return nil, ErrMalformedHash
	}
	if fields[1] != "argon2id" {
		return nil, fmt.Errorf("%w: algorithm %q", ErrMalformedHash, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: version %d", ErrMalformedHash, version)
	}

	var p PasswordParams
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %w", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil {
		return nil, fmt.Errorf("%w: key: %w", ErrMalformedHash, err)
	}

	p.SaltLen = len(salt)
	//nolint:gosec // argon2 keys are a few dozen bytes
	p.KeyLen = uint32(len(key))

	return &storedHash{params: p, salt: salt, key: key}, nil
}

func stale(encoded string) bool {
	stored, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want := DefaultPasswordParams
	return stored.params.Memory != want.Memory ||
		stored.params.Time != want.Time ||
		stored.params.Threads != want.Threads ||
		stored.params.KeyLen != want.KeyLen
}
