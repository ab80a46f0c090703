package fauxapi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// TimestampLayout is the UTC timestamp format FauxAPI expects in tokens.
const TimestampLayout = "20060102T150405"

// NonceSize is the number of random bytes in a token nonce.
const NonceSize = 8

// Credentials identify the API client to FauxAPI.
type Credentials struct {
	Key    string
	Secret string
}

// Token builds a fauxapi-auth value from its parts:
// key:timestamp:nonce:sha256hex(secret+timestamp+nonce).
func Token(key, secret string, at time.Time, nonce []byte) string {
	ts := at.UTC().Format(TimestampLayout)
	n := hex.EncodeToString(nonce)
	sum := sha256.Sum256([]byte(secret + ts + n))
	return key + ":" + ts + ":" + n + ":" + hex.EncodeToString(sum[:])
}

// Signer produces a fresh token for every request.
type Signer struct {
	Credentials Credentials
	Now         func() time.Time
	Rand        io.Reader
}

// NewSigner returns a Signer reading the wall clock and crypto/rand.
func NewSigner(creds Credentials) *Signer {
	return &Signer{Credentials: creds, Now: time.Now, Rand: rand.Reader}
}

// Sign returns a new token. It only fails if the random source does.
func (s *Signer) Sign() (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	r := s.Rand
	if r == nil {
		r = rand.Reader
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	return Token(s.Credentials.Key, s.Credentials.Secret, now(), nonce), nil
}
