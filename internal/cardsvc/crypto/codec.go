package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

const ivSize = 16 // AES block size, 128-bit IV

// Codec does symmetric field-level encryption for cache values. The key
// is derived once from the configured secret, so any secret length is
// accepted. Ciphertext wire format is hex(iv) + ":" + hex(ciphertext).
type Codec struct {
	key [32]byte
}

func NewCodec(secret string) *Codec {
	return &Codec{key: sha256.Sum256([]byte(secret))}
}

// Encrypt returns hex(iv):hex(ciphertext) with a fresh random IV per call.
func (c *Codec) Encrypt(plain string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	ct := make([]byte, len(plain))
	cipher.NewCTR(block, iv).XORKeyStream(ct, []byte(plain))

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt is tolerant of malformed or legacy plaintext input: on any
// parse or decrypt failure it logs and returns the value unchanged, so
// a corrupt cache entry degrades instead of failing the read path.
func (c *Codec) Decrypt(value string) string {
	ivHex, ctHex, ok := strings.Cut(value, ":")
	if !ok {
		return value
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		log.Warnf("decrypt skipped, invalid iv segment: %v", err)
		return value
	}

	ct, err := hex.DecodeString(ctHex)
	if err != nil {
		log.Warnf("decrypt skipped, invalid ciphertext segment: %v", err)
		return value
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		log.Warnf("decrypt skipped, cipher init: %v", err)
		return value
	}

	plain := make([]byte, len(ct))
	cipher.NewCTR(block, iv).XORKeyStream(plain, ct)

	return string(plain)
}

// IsEncrypted is a content heuristic: encrypted values carry a 32-char
// hex IV before the first colon.
func IsEncrypted(value string) bool {
	ivHex, _, ok := strings.Cut(value, ":")
	if !ok || len(ivHex) != ivSize*2 {
		return false
	}
	_, err := hex.DecodeString(ivHex)
	return err == nil
}
