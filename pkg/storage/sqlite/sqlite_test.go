package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	r := New(filepath.Join(t.TempDir(), "chat_test.db"), zap.NewNop())
	require.NoError(t, r.Startup(context.Background()))
	t.Cleanup(func() { _ = r.Shutdown(context.Background()) })
	return r
}

func interaction(id, userID string) *models.Interaction {
	return &models.Interaction{
		ID:       id,
		UserID:   userID,
		Content:  "content-" + id,
		Response: "response-" + id,
		Model:    "stub-1",
	}
}

func TestSaveAndHistoryOrdering(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "C"} {
		in := interaction(id, "u1")
		in.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, r.Save(ctx, in))
	}

	history, err := r.GetHistory(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "C", history[0].ID)
	require.Equal(t, "B", history[1].ID)
}

func TestHistoryOrderingSameTimestamp(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"A", "B", "C"} {
		in := interaction(id, "u1")
		in.CreatedAt = ts
		require.NoError(t, r.Save(ctx, in))
	}

	history, err := r.GetHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "C", history[0].ID, "insertion order must break timestamp ties")
}

func TestHistoryEmptyForUnknownUser(t *testing.T) {
	r := newTestRepo(t)

	history, err := r.GetHistory(context.Background(), "nobody", 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestDuplicateIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	in := interaction("A", "u1")
	require.NoError(t, r.Save(ctx, in))

	// A retried save must not duplicate or overwrite the row.
	retry := interaction("A", "u1")
	retry.Response = "different response"
	retry.CreatedAt = in.CreatedAt
	require.NoError(t, r.Save(ctx, retry))

	history, err := r.GetHistory(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "response-A", history[0].Response)
}

func TestSaveStampsCreatedAtOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	in := interaction("A", "u1")
	require.True(t, in.CreatedAt.IsZero())
	require.NoError(t, r.Save(ctx, in))
	require.False(t, in.CreatedAt.IsZero(), "save must stamp CreatedAt")

	stamped := in.CreatedAt
	require.NoError(t, r.Save(ctx, in))
	require.Equal(t, stamped, in.CreatedAt, "retry must reuse the stamp")
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	in := interaction("", "u1")
	err := r.Save(ctx, in)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.NotErrorIs(t, err, errs.ErrStorage)

	history, herr := r.GetHistory(ctx, "u1", 10)
	require.NoError(t, herr)
	require.Empty(t, history, "invalid interaction must not be stored")
}

func TestUsageRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	in := interaction("A", "u1")
	in.Usage = &models.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15, CostUSD: 0.0003}
	require.NoError(t, r.Save(ctx, in))

	history, err := r.GetHistory(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Usage)
	require.Equal(t, 15, history[0].Usage.TotalTokens)
	require.InDelta(t, 0.0003, history[0].Usage.CostUSD, 1e-9)
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	require.True(t, r.HealthCheck(ctx))

	require.NoError(t, r.Shutdown(ctx))
	require.False(t, r.HealthCheck(ctx), "health must be false after shutdown")
}
