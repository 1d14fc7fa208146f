// Package cryptox implements the record envelope used for sync: JSON payloads
// sealed with AES-256-GCM under the user key, plus the key derivations that
// produce that key (Argon2id from the passphrase) and protect it at rest
// (a BLAKE3 device key).
//
// Ciphertext and nonce are always exchanged as standard base64 strings, which
// is the form they take on the wire and in the local credential.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"golang.org/x/crypto/argon2"
	"lukechampine.com/blake3"
)

// NonceSize is the GCM nonce length used for every envelope.
const NonceSize = 12

var (
	ErrSerialization = errors.New("serialization error")
	ErrEncryption    = errors.New("encryption error")
	ErrDecryption    = errors.New("decryption error")
)

// Argon2id parameters. These match the library's recommended defaults and
// must never change: every device has to derive the same key.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

// userKeySalt is compiled in and shared by all installations so that one
// passphrase yields the same user key on every device.
var userKeySalt = []byte{
	0x74, 0x6b, 0x2d, 0x73, 0x79, 0x6e, 0x63, 0x2d,
	0x9c, 0x41, 0x0e, 0xd3, 0x57, 0x28, 0xb1, 0x6a,
	0xe2, 0x05, 0x8f, 0x3d, 0xc4, 0x71, 0x1b, 0x96,
	0x4a, 0xf0, 0x63, 0x2e, 0xbd, 0x19, 0x87, 0x5c,
}

// MakeVerifier returns a SHA-256 digest of the user key. The login request
// carries this digest so the server can recognise the key without seeing it.
func MakeVerifier(userKey []byte) []byte {
	hash := sha256.Sum256(userKey)
	return hash[:]
}

// DeriveUserKey stretches a passphrase into the 32-byte sync key.
// The result is deterministic for a given passphrase.
func DeriveUserKey(passphrase []byte) []byte {
	return argon2.IDKey(passphrase, userKeySalt, argonTime, argonMemory, argonThreads, common.KeySize)
}

// DeriveDeviceKey hashes a device id into the key that wraps the user key
// locally. It is never transmitted.
func DeriveDeviceKey(deviceID string) []byte {
	sum := blake3.Sum256([]byte(deviceID))
	return sum[:]
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != common.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", common.KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt serializes v to JSON and seals it with AES-256-GCM under key.
// A fresh random nonce is generated for every call.
//
// Example:
//
//	ct, nonce, err := cryptox.Encrypt(task, userKey)
//	if err != nil {
//	    return err
//	}
//	rec := models.EncryptedRecord{Ciphertext: ct, Nonce: nonce, UID: task.UID}
func Encrypt(v any, key []byte) (ciphertext, nonce string, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	aead, err := newGCM(key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return "", "", fmt.Errorf("%w: nonce: %w", ErrEncryption, err)
	}

	sealed := aead.Seal(nil, n, plaintext, nil)

	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(n), nil
}

// Decrypt reverses Encrypt and unmarshals the plaintext into v, which must
// be a pointer. Any tampering with ciphertext or nonce yields ErrDecryption.
func Decrypt(ciphertext, nonce string, key []byte, v any) error {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return fmt.Errorf("%w: ciphertext: %w", ErrDecryption, err)
	}
	n, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return fmt.Errorf("%w: nonce: %w", ErrDecryption, err)
	}
	if len(n) != NonceSize {
		return fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrDecryption, NonceSize, len(n))
	}

	aead, err := newGCM(key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	plaintext, err := aead.Open(nil, n, sealed, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	defer common.WipeByteArray(plaintext)

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return nil
}

// WrapUserKey encrypts the user key under the device key derived from
// deviceID, for storage in the local credential.
func WrapUserKey(userKey []byte, deviceID string) (wrapped, nonce string, err error) {
	deviceKey := DeriveDeviceKey(deviceID)
	defer common.WipeByteArray(deviceKey)

	return Encrypt(userKey, deviceKey)
}

// UnwrapUserKey recovers the user key stored by WrapUserKey. It fails with
// ErrDecryption when the credential was wrapped on a different device.
func UnwrapUserKey(wrapped, nonce, deviceID string) ([]byte, error) {
	deviceKey := DeriveDeviceKey(deviceID)
	defer common.WipeByteArray(deviceKey)

	var userKey []byte
	if err := Decrypt(wrapped, nonce, deviceKey, &userKey); err != nil {
		return nil, err
	}
	if len(userKey) != common.KeySize {
		common.WipeByteArray(userKey)
		return nil, fmt.Errorf("%w: unwrapped key has %d bytes", ErrDecryption, len(userKey))
	}
	return userKey, nil
}
