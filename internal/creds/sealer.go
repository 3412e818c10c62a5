// Package creds produces the encrypted password envelope Instagram expects
// during login. The plaintext password never leaves the process: it is sealed
// with a random AES-256-GCM key, and that key is wrapped with the platform's
// rotating RSA public key.
package creds

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"strconv"
	"time"
)

const (
	formatMarker  = 0x01
	sessionKeyLen = 32
	nonceLen      = 12
	gcmTagLen     = 16
)

// Seal encrypts password with the platform public key (keyID, pubKeyB64 as
// served in the ig-set-password-encryption-* headers) and returns the
// "#PWD_INSTAGRAM:4:<ts>:<payload>" credential string.
//
// Any failing step is fatal to the login attempt; no partial credential is
// ever returned.
func Seal(password string, keyID int, pubKeyB64 string, now time.Time) (string, error) {
	pub, err := parsePublicKey(pubKeyB64)
	if err != nil {
		return "", fmt.Errorf("creds: parse public key: %w", err)
	}

	sessionKey := make([]byte, sessionKeyLen)
	if _, err := rand.Read(sessionKey); err != nil {
		return "", fmt.Errorf("creds: session key: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("creds: nonce: %w", err)
	}

	ts := strconv.FormatInt(now.Unix(), 10)

	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, sessionKey)
	if err != nil {
		return "", fmt.Errorf("creds: wrap session key: %w", err)
	}

	block, err := aes.NewCipher(sessionKey)
	if err != nil {
		return "", fmt.Errorf("creds: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creds: gcm: %w", err)
	}
	// The timestamp is authenticated but not encrypted.
	sealed := gcm.Seal(nil, nonce, []byte(password), []byte(ts))
	ciphertext := sealed[:len(sealed)-gcmTagLen]
	tag := sealed[len(sealed)-gcmTagLen:]

	wrappedLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(wrappedLen, uint16(len(wrapped)))

	// Envelope: marker, key id, nonce, wrapped-key length, wrapped key,
	// GCM tag, ciphertext. The tag precedes the ciphertext on the wire.
	envelope := make([]byte, 0, 2+nonceLen+2+len(wrapped)+len(sealed))
	envelope = append(envelope, formatMarker, byte(keyID))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, wrappedLen...)
	envelope = append(envelope, wrapped...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)

	payload := base64.StdEncoding.EncodeToString(envelope)
	return fmt.Sprintf("#PWD_INSTAGRAM:4:%s:%s", ts, payload), nil
}

// parsePublicKey decodes the base64-wrapped PEM key the platform serves.
func parsePublicKey(pubKeyB64 string) (*rsa.PublicKey, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(pubKeyB64)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in key material")
	}

	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key is %T, want RSA", parsed)
	}
	return key, nil
}
