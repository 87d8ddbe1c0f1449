package storage

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const argon2idPrefix = "$argon2id$v=19$"

// passwordHasher hashes and verifies passwords as PHC formatted argon2id
// strings: $argon2id$v=19$m=<memory>,t=<time>,p=<parallelism>$<salt>$<hash>
type passwordHasher struct {
	params Argon2idParams
}

func newPasswordHasher(p Argon2idParams) passwordHasher {
	if p.Time == 0 {
		p = defaultArgon2idParams()
	}
	return passwordHasher{params: p}
}

func (h passwordHasher) hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p := h.params
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.WithStack(err)
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)
	return fmt.Sprintf(
		"%sm=%d,t=%d,p=%d$%s$%s", argon2idPrefix, p.MemoryKiB, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// verify checks password against encoded; needsRehash is set if encoded was
// created with other parameters than the configured ones
func (h passwordHasher) verify(encoded, password string) (ok, needsRehash bool, err error) {
	p, salt, sum, err := parseArgon2id(encoded)
	if err != nil {
		return false, false, err
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, uint32(len(sum)))
	if subtle.ConstantTimeCompare(dk, sum) != 1 {
		return false, false, nil
	}
	return true, p != h.params, nil
}

func parseArgon2id(encoded string) (p Argon2idParams, salt, sum []byte, err error) {
	if !strings.HasPrefix(encoded, argon2idPrefix) {
		err = errors.New("unsupported password hash format")
		return
	}
	parts := strings.Split(strings.TrimPrefix(encoded, argon2idPrefix), "$")
	if len(parts) != 3 {
		err = errors.New("invalid argon2id hash format")
		return
	}
	if _, err = fmt.Sscanf(parts[0], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &p.Parallelism); err != nil {
		err = errors.Wrap(err, "invalid argon2id parameters")
		return
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[1]); err != nil {
		err = errors.Wrap(err, "invalid argon2id salt")
		return
	}
	if sum, err = base64.RawStdEncoding.DecodeString(parts[2]); err != nil {
		err = errors.Wrap(err, "invalid argon2id hash")
		return
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(sum))
	return
}

func defaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		Time:        1,
		MemoryKiB:   64 * 1024,
		Parallelism: 4,
		KeyLen:      32,
		SaltLen:     16,
	}
}
