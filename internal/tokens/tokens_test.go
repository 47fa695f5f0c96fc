package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/neubio/neubio/internal/sessions"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestGenerateAccessToken_VerifyAndClaims(t *testing.T) {
	iss := NewIssuer(secret, 2*time.Minute, nil)
	tokenStr, err := iss.GenerateAccessToken()
	require.NoError(t, err)

	tok, err := iss.Verify(context.Background(), tokenStr)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, Subject, claims["sub"])
	require.NotEmpty(t, claims["jti"])
}

func TestVerify_Expired(t *testing.T) {
	iss := NewIssuer(secret, -time.Minute, nil)
	tokenStr, err := iss.GenerateAccessToken()
	require.NoError(t, err)
	_, err = iss.Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	tokenStr, err := NewIssuer(secret, time.Minute, nil).GenerateAccessToken()
	require.NoError(t, err)
	_, err = NewIssuer("different-secret-xxxxxxxxxxxxxxxx", time.Minute, nil).Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := NewIssuer(secret, time.Minute, nil).Verify(context.Background(), "not.a.jwt")
	require.Error(t, err)
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	headerEnc := (&jwt.Token{}).EncodeSegment([]byte(`{"alg":"none"}`))
	payloadEnc := (&jwt.Token{}).EncodeSegment([]byte(`{"sub":"admin","exp":9999999999}`))
	_, err := NewIssuer(secret, time.Minute, nil).Verify(context.Background(), headerEnc+"."+payloadEnc+".")
	require.Error(t, err)
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	iss := NewIssuer(secret, 5*time.Minute, nil)
	tokenStr, err := iss.GenerateAccessToken()
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	require.NoError(t, err)
	parts[1] = (&jwt.Token{}).EncodeSegment([]byte(strings.Replace(string(payload), `"admin"`, `"attacker"`, 1)))
	_, err = iss.Verify(context.Background(), strings.Join(parts, "."))
	require.Error(t, err)
}

func TestVerify_WrongSubjectRejected(t *testing.T) {
	claims := jwt.MapClaims{"sub": "someone", "exp": time.Now().Add(time.Minute).Unix()}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = NewIssuer(secret, time.Minute, nil).Verify(context.Background(), tokenStr)
	require.Error(t, err)
}

func TestRevoke(t *testing.T) {
	iss := NewIssuer(secret, time.Minute, sessions.NewMemoryBlacklist())
	ctx := context.Background()
	tokenStr, err := iss.GenerateAccessToken()
	require.NoError(t, err)

	_, err = iss.Verify(ctx, tokenStr)
	require.NoError(t, err)

	require.NoError(t, iss.Revoke(ctx, tokenStr))
	_, err = iss.Verify(ctx, tokenStr)
	require.ErrorIs(t, err, ErrRevoked)

	other, err := iss.GenerateAccessToken()
	require.NoError(t, err)
	_, err = iss.Verify(ctx, other)
	require.NoError(t, err)
}
