package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspots/backend/internal/domain"
	"github.com/skyspots/backend/internal/pkg/logger"
	"github.com/skyspots/backend/internal/repository/memory"
	"github.com/skyspots/backend/internal/service/ingest"
	"github.com/skyspots/backend/internal/service/suppression"
	"github.com/skyspots/backend/internal/ses"
)

type fixture struct {
	svc          *ingest.Service
	bounces      *memory.BounceRepo
	complaints   *memory.ComplaintRepo
	suppressions *suppression.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bounces := memory.NewBounceRepo()
	complaints := memory.NewComplaintRepo()
	supp := suppression.NewService(memory.NewSuppressionRepo(), logger.Nop())
	svc := ingest.NewService(bounces, complaints, supp, logger.Nop()).
		WithUserResolver(memory.NewUserDirectory(map[string]string{"a@x.com": "user-1"}))
	return &fixture{svc: svc, bounces: bounces, complaints: complaints, suppressions: supp}
}

func bounce(t *testing.T, bounceType, subType string, emails ...string) *ses.Notification {
	t.Helper()
	recipients := ""
	for i, e := range emails {
		if i > 0 {
			recipients += ","
		}
		recipients += fmt.Sprintf(`{"emailAddress":%q,"diagnosticCode":"550 5.1.1 #%d"}`, e, i)
	}
	n, err := ses.ParseNotification(fmt.Sprintf(
		`{"notificationType":"Bounce","bounce":{"bounceType":%q,"bounceSubType":%q,"bouncedRecipients":[%s]},"mail":{"messageId":"msg-%s"}}`,
		bounceType, subType, recipients, bounceType))
	require.NoError(t, err)
	return n
}

func complaint(t *testing.T, feedbackType string, emails ...string) *ses.Notification {
	t.Helper()
	recipients := ""
	for i, e := range emails {
		if i > 0 {
			recipients += ","
		}
		recipients += fmt.Sprintf(`{"emailAddress":%q}`, e)
	}
	n, err := ses.ParseNotification(fmt.Sprintf(
		`{"notificationType":"Complaint","complaint":{"complainedRecipients":[%s],"feedbackId":"fb-1","userAgent":"Yahoo!-Mail-Feedback/2.0","complaintFeedbackType":%q},"mail":{"messageId":"msg-c"}}`,
		recipients, feedbackType))
	require.NoError(t, err)
	return n
}

func suppressed(t *testing.T, f *fixture, email string) bool {
	t.Helper()
	ok, err := f.suppressions.IsSuppressed(context.Background(), email)
	require.NoError(t, err)
	return ok
}

func TestProcessBounce_HardBounceFirstOccurrence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.ProcessBounce(ctx, bounce(t, "Permanent", "General", "A@X.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := f.bounces.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BounceCount)
	assert.Equal(t, domain.BounceHard, rec.Category)
	assert.Equal(t, "general", rec.SubType)
	assert.Equal(t, "550 5.1.1 #0", rec.DiagnosticCode)
	assert.Equal(t, "msg-Permanent", rec.SourceMessageID)
	assert.Equal(t, "user-1", rec.UserID)
	assert.NotEmpty(t, rec.RawPayload)
	assert.True(t, rec.Suppressed)

	entry, err := f.suppressions.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonHardBounce, entry.Reason)
	assert.Equal(t, rec.ID, entry.BounceID)
}

func TestProcessBounce_RepeatIncrementsAndOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessBounce(ctx, bounce(t, "Transient", "Mailbox Full", "b@x.com"))
	require.NoError(t, err)
	_, err = f.svc.ProcessBounce(ctx, bounce(t, "Temporary", "General", "b@x.com"))
	require.NoError(t, err)

	rec, err := f.bounces.FindByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.BounceCount)
	assert.Equal(t, domain.BounceSoft, rec.Category)
	assert.Equal(t, "general", rec.SubType)
	assert.Equal(t, "msg-Temporary", rec.SourceMessageID)
	assert.Len(t, f.bounces.All(), 1, "one record per address")
}

func TestProcessBounce_SoftThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := f.svc.ProcessBounce(ctx, bounce(t, "Temporary", "General", "soft@x.com"))
		require.NoError(t, err)
		assert.Equal(t, i >= 3, suppressed(t, f, "soft@x.com"), "after %d soft bounce(s)", i)
	}

	entry, err := f.suppressions.Get(ctx, "soft@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonSoftBounce, entry.Reason)
}

func TestProcessBounce_TransientThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := f.svc.ProcessBounce(ctx, bounce(t, "Undetermined", "", "t@x.com"))
		require.NoError(t, err)
		assert.Equal(t, i >= 5, suppressed(t, f, "t@x.com"), "after %d transient bounce(s)", i)
	}

	rec, _ := f.bounces.FindByEmail(ctx, "t@x.com")
	assert.Equal(t, domain.BounceTransient, rec.Category)

	entry, err := f.suppressions.Get(ctx, "t@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonSoftBounce, entry.Reason)
}

func TestProcessBounce_CustomPolicy(t *testing.T) {
	f := newFixture(t)
	f.svc.WithPolicy(domain.SuppressionPolicy{SoftBounceThreshold: 1, TransientBounceThreshold: 2})

	_, err := f.svc.ProcessBounce(context.Background(), bounce(t, "Temporary", "General", "c@x.com"))
	require.NoError(t, err)
	assert.True(t, suppressed(t, f, "c@x.com"))
}

func TestProcessBounce_AlreadySuppressedIsNotReAdded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.ProcessBounce(ctx, bounce(t, "Permanent", "General", "a@x.com"))
		require.NoError(t, err)
	}

	rec, _ := f.bounces.FindByEmail(ctx, "a@x.com")
	assert.Equal(t, 3, rec.BounceCount)
	n, _ := f.suppressions.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestProcessBounce_SkipsEmptyRecipients(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.ProcessBounce(context.Background(), bounce(t, "Permanent", "General", "", "  ", "d@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.bounces.All(), 1)
}

func TestProcessBounce_MultipleRecipients(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.ProcessBounce(context.Background(), bounce(t, "Permanent", "NoEmail", "e@x.com", "f@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, suppressed(t, f, "e@x.com"))
	assert.True(t, suppressed(t, f, "f@x.com"))
}

func TestProcessBounce_WrongType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessBounce(context.Background(), complaint(t, "abuse", "a@x.com"))
	assert.ErrorIs(t, err, ingest.ErrWrongNotificationType)
	assert.Empty(t, f.bounces.All())
	assert.Empty(t, f.complaints.All())
}

func TestProcessBounce_MissingBounceObject(t *testing.T) {
	f := newFixture(t)
	n, err := ses.ParseNotification(`{"notificationType":"Bounce"}`)
	require.NoError(t, err)

	processed, err := f.svc.ProcessBounce(context.Background(), n)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestProcessComplaint_CreatesRecordAndSuppresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.ProcessComplaint(ctx, complaint(t, "abuse", "a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all := f.complaints.All()
	require.Len(t, all, 1)
	assert.Equal(t, "a@x.com", all[0].Email)
	assert.Equal(t, domain.ComplaintAbuse, all[0].Category)
	assert.Equal(t, "Yahoo!-Mail-Feedback/2.0", all[0].UserAgent)
	assert.Equal(t, "fb-1", all[0].FeedbackID)
	assert.Equal(t, "user-1", all[0].UserID)
	assert.True(t, all[0].Suppressed)

	entry, err := f.suppressions.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonComplaint, entry.Reason)
	assert.Equal(t, all[0].ID, entry.ComplaintID)
}

func TestProcessComplaint_NeverMerged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.ProcessComplaint(ctx, complaint(t, "marketing", "g@x.com"))
		require.NoError(t, err)
	}

	all := f.complaints.All()
	require.Len(t, all, 2)
	assert.NotEqual(t, all[0].ID, all[1].ID)
	assert.Equal(t, domain.ComplaintOther, all[1].Category)

	n, _ := f.suppressions.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestProcessComplaint_WrongType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessComplaint(context.Background(), bounce(t, "Permanent", "General", "a@x.com"))
	assert.ErrorIs(t, err, ingest.ErrWrongNotificationType)
	assert.Empty(t, f.complaints.All())
}

type failingBounceRepo struct{ *memory.BounceRepo }

func (failingBounceRepo) FindByEmail(context.Context, string) (*domain.BounceRecord, error) {
	return nil, errors.New("db down")
}

func TestProcessBounce_RepositoryErrorPropagates(t *testing.T) {
	supp := suppression.NewService(memory.NewSuppressionRepo(), logger.Nop())
	svc := ingest.NewService(failingBounceRepo{memory.NewBounceRepo()}, memory.NewComplaintRepo(), supp, logger.Nop())

	n, err := svc.ProcessBounce(context.Background(), bounce(t, "Permanent", "General", "a@x.com"))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "db down")
}

// racingBounceRepo reports "not found" once, as if another delivery
// inserted the row between lookup and insert.
type racingBounceRepo struct {
	*memory.BounceRepo
	raced bool
}

func (r *racingBounceRepo) FindByEmail(ctx context.Context, email string) (*domain.BounceRecord, error) {
	if !r.raced {
		r.raced = true
		_ = r.BounceRepo.Create(ctx, &domain.BounceRecord{Email: email, BounceCount: 1, Category: domain.BounceSoft})
		return nil, ingest.ErrRecordNotFound
	}
	return r.BounceRepo.FindByEmail(ctx, email)
}

func TestProcessBounce_CreateRaceFallsBackToRepeat(t *testing.T) {
	repo := &racingBounceRepo{BounceRepo: memory.NewBounceRepo()}
	supp := suppression.NewService(memory.NewSuppressionRepo(), logger.Nop())
	svc := ingest.NewService(repo, memory.NewComplaintRepo(), supp, logger.Nop())

	n, err := svc.ProcessBounce(context.Background(), bounce(t, "Temporary", "General", "race@x.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := repo.BounceRepo.FindByEmail(context.Background(), "race@x.com")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.BounceCount)
}
