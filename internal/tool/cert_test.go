package tool

import (
	"crypto/tls"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func TestGenerateTlsCertificate(t *testing.T) {
	dir := t.TempDir()
	keyFilename := filepath.Join(dir, "key.pem")
	certFilename := filepath.Join(dir, "cert.pem")

	exists, err := IsFileExists(certFilename)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, GenerateTlsCertificate("jypelle", "Ledmsg Server", keyFilename, certFilename, []string{"localhost", "127.0.0.1"}))

	exists, err = IsFileExists(certFilename)
	require.NoError(t, err)
	assert.True(t, exists)

	pair, err := tls.LoadX509KeyPair(certFilename, keyFilename)
	require.NoError(t, err)
	assert.Len(t, pair.Certificate, 1)
}
