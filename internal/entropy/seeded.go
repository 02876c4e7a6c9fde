package entropy

import (
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

// ChaCha20 keystream limit for a single nonce: 2^32 blocks of 64 bytes.
const maxKeystream = uint64(1) << 38

var errKeystreamExhausted = errors.New("seeded keystream exhausted")

// Argon2id parameters for stretching the passphrase.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

type keystream struct {
	c         *chacha20.Cipher
	remaining uint64
}

// NewSeeded returns a deterministic byte stream derived from passphrase and
// salt: the passphrase is stretched with Argon2id, expanded with HKDF-SHA512
// into a ChaCha20 key and nonce, and the keystream is served as the output.
//
// Two streams built from the same inputs yield identical bytes, which makes
// whole key generations reproducible. The reader is not safe for concurrent
// use; wrap it with Locked when sharing it between goroutines.
func NewSeeded(passphrase, salt string) (io.Reader, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("entropy: seeded source needs a passphrase")
	}

	stretched := argon2.IDKey([]byte(passphrase), []byte(salt), argonTime, argonMemory, argonThreads, argonKeyLen)
	kdf := hkdf.New(sha512.New, stretched, []byte(salt), []byte("rsagen seeded entropy"))

	key := make([]byte, chacha20.KeySize)
	nonce := make([]byte, chacha20.NonceSize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("entropy: derive seeded key: %w", err)
	}
	if _, err := io.ReadFull(kdf, nonce); err != nil {
		return nil, fmt.Errorf("entropy: derive seeded nonce: %w", err)
	}

	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("entropy: init seeded cipher: %w", err)
	}
	return &keystream{c: c, remaining: maxKeystream}, nil
}

func (k *keystream) Read(p []byte) (int, error) {
	if uint64(len(p)) > k.remaining {
		return 0, errKeystreamExhausted
	}
	clear(p)
	k.c.XORKeyStream(p, p)
	k.remaining -= uint64(len(p))
	return len(p), nil
}

type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

// Locked serialises reads on r. crypto/rand.Reader is returned unchanged.
func Locked(r io.Reader) io.Reader {
	if r == rand.Reader {
		return r
	}
	if _, ok := r.(*lockedReader); ok {
		return r
	}
	return &lockedReader{r: r}
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}
