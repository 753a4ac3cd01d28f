package echo

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-verified"))
	require.NoError(t, err)
	return token
}

func TestExtractJwt(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractJwt("Bearer abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", ExtractJwt("abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", ExtractJwt("  Bearer   abc.def.ghi  "))
	assert.Equal(t, "", ExtractJwt("   "))
}

func TestDecodeJwt(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"sub": "1234567890", "name": "Jane", "admin": true})

	decoded, err := DecodeJwt(token)
	require.NoError(t, err)
	assert.Equal(t, "HS256", decoded.Header["alg"])
	assert.Equal(t, "JWT", decoded.Header["typ"])
	assert.Equal(t, "1234567890", decoded.Payload["sub"])
	assert.Equal(t, true, decoded.Payload["admin"])
	assert.Equal(t, strings.Split(token, ".")[2], decoded.Signature)
}

func TestDecodeJwt_ExpiredIsStillDecoded(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"sub": "x", "exp": 1})
	decoded, err := DecodeJwt(token)
	require.NoError(t, err)
	assert.Equal(t, "x", decoded.Payload["sub"])
}

func TestDecodeJwt_UnknownAlgorithm(t *testing.T) {
	enc := base64.RawURLEncoding
	token := enc.EncodeToString([]byte(`{"alg":"XX999","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"sub":"odd"}`)) + ".c2ln"

	decoded, err := DecodeJwt(token)
	require.NoError(t, err)
	assert.Equal(t, "XX999", decoded.Header["alg"])
	assert.Equal(t, "odd", decoded.Payload["sub"])
	assert.Equal(t, "c2ln", decoded.Signature)
}

func TestDecodeJwt_Malformed(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b", "!!!.@@@.###"} {
		_, err := DecodeJwt(token)
		assert.Error(t, err, token)
	}
}
