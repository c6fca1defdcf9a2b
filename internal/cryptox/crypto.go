// Package cryptox implements the at-rest envelope used for uploaded files.
//
// Layout of a sealed blob:
//
//	IV (16 bytes) || AES-CBC ciphertext (PKCS#7 padded) || HMAC-SHA256 tag (32 bytes)
//
// The tag covers IV and ciphertext. Encryption and MAC keys are derived from
// the configured key with HKDF-SHA256, so a single secret drives both.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"golang.org/x/crypto/hkdf"
)

const (
	// IVSize is the length of the random prefix of every sealed blob.
	IVSize  = aes.BlockSize
	tagSize = sha256.Size
)

var (
	encInfo = []byte("typicaltools envelope enc")
	macInfo = []byte("typicaltools envelope mac")
)

// randReader is swapped in tests to simulate an exhausted random source.
var randReader io.Reader = rand.Reader

// Envelope seals and opens blobs with a fixed key.
type Envelope struct {
	block  cipher.Block
	macKey []byte
}

// NewEnvelope validates key and derives the working keys.
// The key must be 16, 24 or 32 bytes (AES-128/192/256).
func NewEnvelope(key []byte) (*Envelope, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d bytes, want 16, 24 or 32", common.ErrInvalidKeySize, len(key))
	}

	encKey := make([]byte, len(key))
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, encInfo), encKey); err != nil {
		return nil, fmt.Errorf("derive enc key: %w", err)
	}
	defer common.WipeByteArray(encKey)

	macKey := make([]byte, tagSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, macInfo), macKey); err != nil {
		return nil, fmt.Errorf("derive mac key: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, err
	}

	return &Envelope{block: block, macKey: macKey}, nil
}

// Seal encrypts plaintext under a fresh random IV. Two calls with the same
// input produce different output.
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	out := make([]byte, IVSize+len(padded), IVSize+len(padded)+tagSize)
	iv := out[:IVSize]
	if _, err := io.ReadFull(randReader, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out[IVSize:], padded)

	return append(out, e.tag(out)...), nil
}

// Open verifies and decrypts a blob produced by Seal. Any truncation,
// modification or key mismatch yields an error wrapping common.ErrDecryption.
func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < IVSize+aes.BlockSize+tagSize {
		return nil, fmt.Errorf("%w: input too short", common.ErrDecryption)
	}

	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	if !hmac.Equal(tag, e.tag(body)) {
		return nil, fmt.Errorf("%w: authentication failed", common.ErrDecryption)
	}

	iv, ciphertext := body[:IVSize], body[IVSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not block aligned", common.ErrDecryption)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(plaintext, ciphertext)

	out, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Envelope) tag(data []byte) []byte {
	m := hmac.New(sha256.New, e.macKey)
	m.Write(data)
	return m.Sum(nil)
}

// Seal is a one-shot helper around NewEnvelope(key).Seal.
func Seal(plaintext, key []byte) ([]byte, error) {
	env, err := NewEnvelope(key)
	if err != nil {
		return nil, err
	}
	return env.Seal(plaintext)
}

// Open is a one-shot helper around NewEnvelope(key).Open.
func Open(sealed, key []byte) ([]byte, error) {
	env, err := NewEnvelope(key)
	if err != nil {
		return nil, err
	}
	return env.Open(sealed)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("%w: bad padding", common.ErrDecryption)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, fmt.Errorf("%w: bad padding", common.ErrDecryption)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", common.ErrDecryption)
		}
	}
	return b[:len(b)-n], nil
}
