package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssue(t *testing.T) {
	issuer := NewIssuer()

	creds, err := issuer.Issue()
	require.NoError(t, err)

	assert.NotEmpty(t, creds.ClaimCode)
	assert.Empty(t, creds.ClaimSecret)
	assert.Empty(t, creds.SecretHash)

	// 16 bytes base64url without padding is 22 characters.
	assert.Len(t, creds.ClaimCode, 22)
}

func TestClaimCodeIsURLPathSafe(t *testing.T) {
	issuer := NewIssuer()

	for i := 0; i < 100; i++ {
		creds, err := issuer.Issue()
		require.NoError(t, err)
		assert.NotContains(t, creds.ClaimCode, "/")
		assert.NotContains(t, creds.ClaimCode, "+")
		assert.NotContains(t, creds.ClaimCode, "=")
	}
}

func TestClaimCodeUniqueness(t *testing.T) {
	issuer := NewIssuer()

	const samples = 1_000_000

	seen := make(map[string]struct{}, samples)
	for i := 0; i < samples; i++ {
		creds, err := issuer.Issue()
		require.NoError(t, err)
		_, dup := seen[creds.ClaimCode]
		require.False(t, dup, "duplicate claim code after %d issues", i)
		seen[creds.ClaimCode] = struct{}{}
	}
}

func TestIssueWithSecret(t *testing.T) {
	issuer := NewIssuer()

	creds, err := issuer.IssueWithSecret()
	require.NoError(t, err)

	assert.NotEmpty(t, creds.ClaimCode)
	assert.Len(t, creds.ClaimSecret, 12)
	assert.NotEmpty(t, creds.SecretHash)
	assert.NotEqual(t, creds.ClaimSecret, creds.SecretHash)

	// The secret uses the unambiguous alphabet only.
	for _, ch := range creds.ClaimSecret {
		assert.True(t, strings.ContainsRune(secretAlphabet, ch), "unexpected character %q", ch)
	}
}

func TestVerifySecret(t *testing.T) {
	issuer := NewIssuer()

	creds, err := issuer.IssueWithSecret()
	require.NoError(t, err)

	assert.True(t, VerifySecret(creds.ClaimSecret, creds.SecretHash))
	assert.False(t, VerifySecret("wrong-secret", creds.SecretHash))
	assert.False(t, VerifySecret("", creds.SecretHash))
}
