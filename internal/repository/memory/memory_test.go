package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/service/ingest"
	"github.com/skyspots/backend/internal/service/suppression"
)

func TestBounceRepo_CreateAndRepeat(t *testing.T) {
	repo := NewBounceRepo()
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, ingest.ErrRecordNotFound)

	rec := &domain.BounceRecord{Email: "a@x.com", BounceCount: 1, Category: domain.BounceSoft, UserID: "u-1"}
	require.NoError(t, repo.Create(ctx, rec))
	require.NotEmpty(t, rec.ID)
	assert.ErrorIs(t, repo.Create(ctx, &domain.BounceRecord{Email: "a@x.com"}), ingest.ErrDuplicateRecord)

	repeat := &domain.BounceRecord{Email: "a@x.com", Category: domain.BounceHard, SubType: "general"}
	require.NoError(t, repo.RecordRepeat(ctx, repeat))
	assert.Equal(t, rec.ID, repeat.ID)
	assert.Equal(t, 2, repeat.BounceCount)
	assert.Equal(t, "u-1", repeat.UserID)

	require.NoError(t, repo.MarkSuppressed(ctx, rec.ID))
	got, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, got.Suppressed)
	assert.Equal(t, domain.BounceHard, got.Category)

	assert.ErrorIs(t, repo.RecordRepeat(ctx, &domain.BounceRecord{Email: "b@x.com"}), ingest.ErrRecordNotFound)
	assert.ErrorIs(t, repo.MarkSuppressed(ctx, "missing"), ingest.ErrRecordNotFound)
}

func TestComplaintRepo_NeverMerges(t *testing.T) {
	repo := NewComplaintRepo()
	ctx := context.Background()

	a := &domain.ComplaintRecord{Email: "a@x.com"}
	b := &domain.ComplaintRecord{Email: "a@x.com"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	assert.NotEqual(t, a.ID, b.ID)

	require.NoError(t, repo.MarkSuppressed(ctx, b.ID))
	all := repo.All()
	require.Len(t, all, 2)
	assert.False(t, all[0].Suppressed)
	assert.True(t, all[1].Suppressed)
}

func TestSuppressionRepo_AddIsIdempotent(t *testing.T) {
	repo := NewSuppressionRepo()
	ctx := context.Background()

	added, err := repo.Add(ctx, &domain.SuppressionEntry{Email: "a@x.com", Reason: domain.ReasonComplaint})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Add(ctx, &domain.SuppressionEntry{Email: "a@x.com", Reason: domain.ReasonHardBounce})
	require.NoError(t, err)
	assert.False(t, added)

	e, err := repo.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonComplaint, e.Reason)

	_, err = repo.Get(ctx, "b@x.com")
	assert.ErrorIs(t, err, suppression.ErrNotFound)

	n, _ := repo.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestUserDirectory(t *testing.T) {
	d := NewUserDirectory(map[string]string{"Stella@Observatory.org": "user-42"})

	id, err := d.ResolveUserID(context.Background(), "stella@observatory.org")
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)

	id, err = d.ResolveUserID(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, id)
}
