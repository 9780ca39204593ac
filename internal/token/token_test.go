package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verigate/pkg/domain"
	dErrors "verigate/pkg/domain-errors"
)

const signingKey = "token-test-signing-key-32-bytes!!"

func TestGenerateVerifyRoundTrip(t *testing.T) {
	svc := NewService(signingKey, "verigate-test")
	userID := id.NewUserID()

	tok, err := svc.Generate(userID, "ada@example.test", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "ada@example.test", claims.Email)
	assert.Equal(t, "verigate-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewService(signingKey, "verigate-test")

	tok, err := svc.Generate(id.NewUserID(), "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	issuer := NewService(signingKey, "verigate-test")
	verifier := NewService("a-completely-different-signing-key", "verigate-test")

	tok, err := issuer.Generate(id.NewUserID(), "", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewService(signingKey, "verigate-test")

	for _, raw := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := svc.Verify(raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), raw)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	svc := NewService(signingKey, "verigate-test")

	tok, err := svc.Generate(id.NewUserID(), "", time.Hour)
	require.NoError(t, err)

	tampered := []byte(tok)
	tampered[len(tampered)/2] ^= 0x01
	_, err = svc.Verify(string(tampered))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
