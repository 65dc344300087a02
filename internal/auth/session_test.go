package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	require.NoError(t, Init())
	assert.Equal(t, time.Hour, TokenExpiry)

	in := Session{UserID: uuid.New(), Email: "p@example.com", Metadata: map[string]interface{}{"guest": true}}
	tok, err := CreateJWT(in)
	require.NoError(t, err)

	out, err := AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, true, out.Metadata["guest"])
}

func TestJWTRejectsTamperingAndExpiry(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	require.NoError(t, Init())
	tok, err := CreateJWT(Session{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = AuthenticateJWT(tok + "x")
	assert.Error(t, err)
	_, err = AuthenticateJWT("not-a-token")
	assert.Error(t, err)

	// a token signed by another key pair
	require.NoError(t, Init())
	_, err = AuthenticateJWT(tok)
	assert.Error(t, err)

	t.Setenv("TOKEN_EXPIRE_TIME", "-1s")
	require.NoError(t, Init())
	expired, err := CreateJWT(Session{UserID: uuid.New()})
	require.NoError(t, err)
	_, err = AuthenticateJWT(expired)
	assert.Error(t, err)
}

func TestBadExpireTime(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "tomorrow")
	assert.Error(t, Init())
}
