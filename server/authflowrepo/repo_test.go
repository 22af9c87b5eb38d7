package authflowrepo_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := authflowrepo.NewInMemoryRepo(
		authflowrepo.WithTTL(10*time.Minute),
		authflowrepo.WithNowFunc(func() time.Time { return now }),
	)

	flow := &authflowrepo.AuthFlowState{CodeVerifier: "v", Nonce: "n", ReturnURL: "/api/session", CreatedAt: now}

	t.Run("consume is single use", func(t *testing.T) {
		require.NoError(t, repo.Upsert("state-1", flow))

		got, err := repo.Get("state-1")
		require.NoError(t, err)
		require.Equal(t, "v", got.CodeVerifier)

		got, err = repo.Consume("state-1")
		require.NoError(t, err)
		require.Equal(t, "n", got.Nonce)

		_, err = repo.Consume("state-1")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("stored copy is isolated", func(t *testing.T) {
		c := *flow
		require.NoError(t, repo.Upsert("state-2", &c))
		c.Nonce = "changed"

		got, err := repo.Get("state-2")
		require.NoError(t, err)
		require.Equal(t, "n", got.Nonce)
		require.NoError(t, repo.Delete("state-2"))
	})

	t.Run("expired states are rejected and swept", func(t *testing.T) {
		require.NoError(t, repo.Upsert("state-3", flow))
		now = now.Add(10 * time.Minute)

		_, err := repo.Get("state-3")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)

		require.NoError(t, repo.Upsert("state-4", &authflowrepo.AuthFlowState{CreatedAt: now}))
		require.Equal(t, 1, repo.Len())

		_, err = repo.Consume("state-3")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("empty arguments", func(t *testing.T) {
		require.Error(t, repo.Upsert("", flow))
		require.Error(t, repo.Upsert("state-5", nil))
		_, err := repo.Consume("")
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})
}
