// Package cryptox holds the password and content cryptography shared by the
// snapshot server and its client driver.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"golang.org/x/crypto/argon2"
)

// sealedPrefix marks content produced by Seal, so Open can tell sealed
// snapshots from plain ones.
const sealedPrefix = "gn1:"

var ErrSealed = errors.New("snapshot is sealed with another key")

// MakeVerifier is what the server stores instead of the password.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// ContentKey derives the snapshot encryption key from the master key. It is
// never the verifier, so the server cannot decrypt what it stores.
func ContentKey(masterKey []byte) []byte {
	h := sha256.New()
	h.Write([]byte("gophnotes content"))
	h.Write(masterKey)
	return h.Sum(nil)
}

// Seal encrypts content with AES-GCM under key. A fresh random nonce is
// generated per call; the result is prefix + base64(nonce || ciphertext).
// Empty content stays empty.
func Seal(content string, key []byte) (string, error) {
	if content == "" {
		return "", nil
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := common.GenerateRandByteArray(aead.NonceSize())
	out := aead.Seal(nonce, nonce, []byte(content), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Content without the sealed prefix is returned as is,
// which lets a remote switch to sealing without a migration.
func Open(content string, key []byte) (string, error) {
	if !strings.HasPrefix(content, sealedPrefix) {
		return content, nil
	}
	raw, err := base64.StdEncoding.DecodeString(content[len(sealedPrefix):])
	if err != nil {
		return "", err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize() {
		return "", errors.New("sealed content too short")
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealed
	}
	return string(plaintext), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
