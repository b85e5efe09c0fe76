package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEd25519SchemeSignVerifyRoundTrip(t *testing.T) {
	id, priv, err := GenerateIdentity()
	require.NoError(t, err)

	body := []byte("block signing body")
	scheme := Ed25519Scheme{}
	sig, err := scheme.Sign(body, priv)
	require.NoError(t, err)
	require.True(t, scheme.Verify(sig, body, id))

	require.False(t, scheme.Verify(sig, []byte("tampered"), id))

	otherID, _, err := GenerateIdentity()
	require.NoError(t, err)
	require.False(t, scheme.Verify(sig, body, otherID))
}

func TestEd25519SchemeRejectsWrongSecretLength(t *testing.T) {
	scheme := Ed25519Scheme{}
	_, err := scheme.Sign([]byte("x"), []byte("too-short"))
	require.Error(t, err)
}

func TestGenerateIdentityProducesDistinctKeys(t *testing.T) {
	id1, _, err := GenerateIdentity()
	require.NoError(t, err)
	id2, _, err := GenerateIdentity()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
	require.False(t, id1.IsZero())
}
