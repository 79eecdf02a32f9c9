package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setTestPepper(t *testing.T) {
	t.Helper()
	SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	pepper = "" // force reload from the fresh path
}

func TestHashAndVerifyPassword(t *testing.T) {
	setTestPepper(t)

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.ErrorIs(t, VerifyPassword("wrong password", hash), ErrPasswordMismatch)
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	setTestPepper(t)

	h1, err := HashPassword("same input")
	require.NoError(t, err)
	h2, err := HashPassword("same input")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	setTestPepper(t)

	for _, encoded := range []string{
		"",
		"not a hash",
		"$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!$aGFzaA",
	} {
		require.Error(t, VerifyPassword("anything", encoded), "encoded=%q", encoded)
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(OTPLength)
	require.NoError(t, err)
	require.Len(t, code, OTPLength)
	for _, c := range code {
		require.True(t, c >= '0' && c <= '9')
	}

	_, err = GenerateNumericCode(0)
	require.Error(t, err)
}

func TestCodesEqual(t *testing.T) {
	require.True(t, CodesEqual("123456", "123456"))
	require.False(t, CodesEqual("123456", "123457"))
	require.False(t, CodesEqual("123456", "12345"))
}
