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
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPublicKey mimics the header value: base64 over a PEM-encoded PKIX key.
func testPublicKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return priv, base64.StdEncoding.EncodeToString(pemBytes)
}

func TestSeal_FormatAndRoundTrip(t *testing.T) {
	priv, pubB64 := testPublicKey(t)
	now := time.Unix(1700000000, 0)

	out, err := Seal("hunter2", 77, pubB64, now)
	require.NoError(t, err)

	parts := strings.SplitN(out, ":", 4)
	require.Len(t, parts, 4)
	assert.Equal(t, "#PWD_INSTAGRAM", parts[0])
	assert.Equal(t, "4", parts[1])
	assert.Equal(t, "1700000000", parts[2])

	envelope, err := base64.StdEncoding.DecodeString(parts[3])
	require.NoError(t, err)

	assert.Equal(t, byte(0x01), envelope[0])
	assert.Equal(t, byte(77), envelope[1])

	nonce := envelope[2:14]
	wrappedLen := int(binary.LittleEndian.Uint16(envelope[14:16]))
	assert.Equal(t, 256, wrappedLen) // 2048-bit key
	wrapped := envelope[16 : 16+wrappedLen]
	tag := envelope[16+wrappedLen : 16+wrappedLen+16]
	ciphertext := envelope[16+wrappedLen+16:]

	sessionKey, err := rsa.DecryptPKCS1v15(nil, priv, wrapped)
	require.NoError(t, err)
	require.Len(t, sessionKey, 32)

	block, err := aes.NewCipher(sessionKey)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plain, err := gcm.Open(nil, nonce, sealed, []byte(strconv.FormatInt(now.Unix(), 10)))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(plain))
}

func TestSeal_FreshRandomnessPerCall(t *testing.T) {
	_, pubB64 := testPublicKey(t)
	now := time.Now()

	a, err := Seal("same-password", 1, pubB64, now)
	require.NoError(t, err)
	b, err := Seal("same-password", 1, pubB64, now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSeal_BadKeyMaterial(t *testing.T) {
	_, err := Seal("pw", 1, "not base64!!!", time.Now())
	assert.Error(t, err)

	garbage := base64.StdEncoding.EncodeToString([]byte("not a pem block"))
	_, err = Seal("pw", 1, garbage, time.Now())
	assert.Error(t, err)
}
