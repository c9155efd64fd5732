package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GenerateAndValidate(t *testing.T) {
	mgr := NewManager("operator-secret-32-chars-long!!!!", 12*time.Hour)

	t.Run("generate and validate", func(t *testing.T) {
		token, err := mgr.Generate()
		require.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
		assert.Equal(t, int64(43200), token.ExpiresIn)

		claims, err := mgr.Validate(token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "operator", claims.Subject)
		assert.Equal(t, "mindforge", claims.Issuer)
	})

	t.Run("invalid token fails validation", func(t *testing.T) {
		_, err := mgr.Validate("invalid-token")
		assert.Error(t, err)
	})

	t.Run("wrong secret fails validation", func(t *testing.T) {
		other := NewManager("a-different-secret-32-chars-long!", 12*time.Hour)
		token, err := mgr.Generate()
		require.NoError(t, err)

		_, err = other.Validate(token.AccessToken)
		assert.Error(t, err)
	})

	t.Run("expired token fails", func(t *testing.T) {
		shortMgr := NewManager("operator-secret-32-chars-long!!!!", -1*time.Second)
		token, err := shortMgr.Generate()
		require.NoError(t, err)

		_, err = shortMgr.Validate(token.AccessToken)
		assert.Error(t, err)
	})
}
