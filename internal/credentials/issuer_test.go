package credentials

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCaseID_Format(t *testing.T) {
	iss := &Issuer{now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }}
	id, err := iss.NewCaseID()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^APP-2026-[A-HJKMNP-Z2-9]{6}$`), id)
}

func TestTokens_NamespacesDoNotOverlap(t *testing.T) {
	iss := NewIssuer()
	portal, err := iss.NewPortalToken()
	require.NoError(t, err)
	upload, err := iss.NewUploadToken()
	require.NoError(t, err)

	assert.True(t, IsPortalToken(portal))
	assert.False(t, IsUploadToken(portal))
	assert.True(t, IsUploadToken(upload))
	assert.False(t, IsPortalToken(upload))
	assert.False(t, IsPortalToken("pt_nothex"))
}

func TestTokens_Unique(t *testing.T) {
	iss := NewIssuer()
	seen := make(map[string]struct{}, 2000)
	for i := 0; i < 1000; i++ {
		p, err := iss.NewPortalToken()
		require.NoError(t, err)
		u, err := iss.NewUploadToken()
		require.NoError(t, err)
		for _, tok := range []string{p, u} {
			_, dup := seen[tok]
			require.False(t, dup, "duplicate token %s", tok)
			seen[tok] = struct{}{}
		}
	}
}

func TestNewPassword_Alphabet(t *testing.T) {
	iss := NewIssuer()
	for i := 0; i < 50; i++ {
		pw, err := iss.NewPassword()
		require.NoError(t, err)
		require.Len(t, pw, 10)
		for _, r := range pw {
			assert.True(t, strings.ContainsRune(passwordAlphabet, r), "unexpected rune %q", r)
		}
	}
}
