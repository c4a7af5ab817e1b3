package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndVerify(t *testing.T) {
	token, err := CreateToken("s3cret", "telegram-bot", time.Minute)
	require.NoError(t, err)

	subject, err := Verify("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "telegram-bot", subject)
}

func TestVerifyRejects(t *testing.T) {
	t.Run("WrongSecret", func(t *testing.T) {
		token, err := CreateToken("s3cret", "bot", time.Minute)
		require.NoError(t, err)
		_, err = Verify("other", token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := CreateToken("s3cret", "bot", -time.Minute)
		require.NoError(t, err)
		_, err = Verify("s3cret", token)
		assert.Error(t, err)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{"/v3/admin/"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		})
		signed, err := token.SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = Verify("s3cret", signed)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := Verify("s3cret", "not-a-token")
		assert.Error(t, err)
	})

	t.Run("EmptySecret", func(t *testing.T) {
		_, err := CreateToken("", "bot", time.Minute)
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}
