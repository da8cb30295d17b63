// Package crypto implements the record encryption scheme: a user-held
// secret key is stretched with PBKDF2-SHA256 and the record text sealed
// with NaCl secretbox. Escrowed entries get a second secretbox layer
// under a server-held pepper, so a database leak alone reveals nothing.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"

	verr "vaulta/internal/errors"
)

const (
	// KeySize is the secretbox key length.
	KeySize = 32

	// NonceSize is the secretbox nonce length. Sealed output carries
	// the nonce as a prefix, so ciphertext is always at least
	// NonceSize+secretbox.Overhead bytes.
	NonceSize = 24

	// SaltLength is the length of generated record salts.
	SaltLength = 12

	// MinIterations is the lowest PBKDF2 iteration count Validate
	// will accept; DefaultIterations lives in the config package.
	MinIterations = 10000
)

const saltChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Cipher binds the key-stretching parameters and server pepper for one
// vault. The zero value is not usable; use New.
type Cipher struct {
	iterations int
	pepper     [KeySize]byte
	hasPepper  bool
}

// New creates a Cipher with the given PBKDF2 iteration count and
// optional 32-byte server pepper. Pass a nil pepper for vaults that
// never touch escrow entries.
func New(iterations int, pepper []byte) (*Cipher, error) {
	if iterations < MinIterations {
		return nil, &verr.ConfigError{
			Field:   "key-iterations",
			Value:   iterations,
			Message: "below the minimum PBKDF2 iteration count",
			Hint:    "use at least 10000 iterations",
		}
	}
	c := &Cipher{iterations: iterations}
	if pepper != nil {
		if len(pepper) != KeySize {
			return nil, &verr.ConfigError{
				Field:   "pepper",
				Value:   len(pepper),
				Message: "pepper must be exactly 32 bytes",
			}
		}
		copy(c.pepper[:], pepper)
		c.hasPepper = true
	}
	return c, nil
}

// Iterations returns the configured PBKDF2 iteration count.
func (c *Cipher) Iterations() int { return c.iterations }

// HasPepper reports whether a server pepper is configured.
func (c *Cipher) HasPepper() bool { return c.hasPepper }

// ── Key stretching ───────────────────────────────────────────────────

// stretch derives a 32-byte secretbox key from a user key and salt.
func (c *Cipher) stretch(key, salt string) [KeySize]byte {
	var out [KeySize]byte
	derived := pbkdf2.Key([]byte(key), []byte(salt), c.iterations, KeySize, sha256.New)
	copy(out[:], derived)
	return out
}

// ── Seal / Open ──────────────────────────────────────────────────────

// Seal encrypts text under the stretched key. The random nonce is
// prefixed to the returned ciphertext.
func (c *Cipher) Seal(text, key, salt string) ([]byte, error) {
	boxKey := c.stretch(key, salt)
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, verr.WrapCrypto("seal", err)
	}
	return secretbox.Seal(nonce[:], []byte(text), &nonce, &boxKey), nil
}

// Open decrypts ciphertext produced by Seal. Returns ErrWrongKey when
// the key and salt fail to authenticate the record.
func (c *Cipher) Open(encrypted []byte, key, salt string) (string, error) {
	boxKey := c.stretch(key, salt)
	plain, err := openBox(encrypted, &boxKey)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// ── Pepper layer ─────────────────────────────────────────────────────

// Pepper encrypts already-sealed bytes under the server pepper.
func (c *Cipher) Pepper(sealed []byte) ([]byte, error) {
	if !c.hasPepper {
		return nil, verr.WrapCrypto("pepper", verr.New("no pepper configured"))
	}
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, verr.WrapCrypto("pepper", err)
	}
	return secretbox.Seal(nonce[:], sealed, &nonce, &c.pepper), nil
}

// Unpepper removes the server pepper layer, returning bytes still
// sealed under the user key. Returns ErrWrongPepper if the configured
// pepper does not match.
func (c *Cipher) Unpepper(peppered []byte) ([]byte, error) {
	if !c.hasPepper {
		return nil, verr.WrapCrypto("unpepper", verr.New("no pepper configured"))
	}
	plain, err := openBox(peppered, &c.pepper)
	if err != nil {
		return nil, verr.ErrWrongPepper
	}
	return plain, nil
}

// openBox splits the nonce prefix and opens the box.
func openBox(encrypted []byte, boxKey *[KeySize]byte) ([]byte, error) {
	if len(encrypted) < NonceSize+secretbox.Overhead {
		return nil, verr.ErrWrongKey
	}
	var nonce [NonceSize]byte
	copy(nonce[:], encrypted[:NonceSize])
	plain, ok := secretbox.Open(nil, encrypted[NonceSize:], &nonce, boxKey)
	if !ok {
		return nil, verr.ErrWrongKey
	}
	return plain, nil
}

// ── Salt generation ──────────────────────────────────────────────────

// RandomSalt returns a fresh alphanumeric salt of SaltLength characters
// drawn from crypto/rand.
func RandomSalt() (string, error) {
	buf := make([]byte, SaltLength)
	max := big.NewInt(int64(len(saltChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", verr.WrapCrypto("salt", err)
		}
		buf[i] = saltChars[n.Int64()]
	}
	return string(buf), nil
}
