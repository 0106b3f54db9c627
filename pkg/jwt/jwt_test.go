package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	tok, err := m.Issue("alice", RoleOperator)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.TokenID)
	assert.Equal(t, int64(3600), tok.ExpiresIn)

	claims, err := m.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
	assert.Equal(t, RoleOperator, claims.Role)
	assert.Equal(t, tok.TokenID, claims.ID)
	assert.InDelta(t, time.Hour.Seconds(), m.Remaining(claims).Seconds(), 5)
}

func TestManager_Rejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	tok, err := m.Issue("alice", RoleOperator)
	require.NoError(t, err)

	t.Run("密钥不同", func(t *testing.T) {
		_, err := NewManager("other", time.Hour).Parse(tok.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("已过期", func(t *testing.T) {
		expired := NewManager("test-secret", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := expired.Parse(tok.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("签发方不符", func(t *testing.T) {
		claims := Claims{Operator: "mallory", RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = m.Parse(signed)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("乱码", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("运维人员为空", func(t *testing.T) {
		_, err := m.Issue("", RoleOperator)
		assert.Error(t, err)
	})
}
