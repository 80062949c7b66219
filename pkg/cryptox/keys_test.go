package cryptox

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/require"
)

func parsePKCS8(t *testing.T, data []byte) any {
	t.Helper()
	block, _ := pem.Decode(data)
	require.NotNil(t, block)
	require.Equal(t, "PRIVATE KEY", block.Type)

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	return key
}

func TestGenerateKeys(t *testing.T) {
	t.Run("ed25519", func(t *testing.T) {
		data, err := GenerateEd25519Key()
		require.NoError(t, err)
		require.IsType(t, ed25519.PrivateKey{}, parsePKCS8(t, data))
	})

	t.Run("es256", func(t *testing.T) {
		data, err := GenerateES256Key()
		require.NoError(t, err)
		require.IsType(t, &ecdsa.PrivateKey{}, parsePKCS8(t, data))
	})

	t.Run("rsa", func(t *testing.T) {
		data, err := GenerateRSAKey(MinRSABits)
		require.NoError(t, err)
		require.IsType(t, &rsa.PrivateKey{}, parsePKCS8(t, data))
	})

	t.Run("rsa too small", func(t *testing.T) {
		_, err := GenerateRSAKey(1024)
		require.Error(t, err)
	})
}
