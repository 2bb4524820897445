package main

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var (
	suppressionCols = []string{"id", "email", "reason", "bounce_id", "complaint_id", "notes", "created_at"}
	bounceCols      = []string{"id", "email", "user_id", "bounce_count", "category", "sub_type", "diagnostic_code",
		"source_message_id", "raw_payload", "suppressed", "first_bounced_at", "last_bounced_at"}
	complaintCols = []string{"id", "email", "user_id", "category", "user_agent",
		"feedback_id", "source_message_id", "suppressed", "created_at"}
)

func TestCheckSchema(t *testing.T) {
	db, mock := newMock(t)
	q := regexp.QuoteMeta("SELECT to_regclass($1)::text")
	mock.ExpectQuery(q).WithArgs("ses_bounce_records").WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow("ses_bounce_records"))
	mock.ExpectQuery(q).WithArgs("ses_complaint_records").WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(nil))
	mock.ExpectQuery(q).WithArgs("email_suppressions").WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow("email_suppressions"))

	res := checkSchema(context.Background(), db)
	assert.False(t, res.Passed)
	assert.Equal(t, "missing: ses_complaint_records", res.Detail)
}

func TestInspectEmail_SuppressedHardBounce(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM email_suppressions WHERE email = $1")).
		WithArgs("stella@observatory.org").
		WillReturnRows(sqlmock.NewRows(suppressionCols).
			AddRow("s-1", "stella@observatory.org", "hard_bounce", "b-1", nil, "SES hard bounce (general) after 1 occurrence(s)", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ses_bounce_records WHERE email = $1")).
		WithArgs("stella@observatory.org").
		WillReturnRows(sqlmock.NewRows(bounceCols).
			AddRow("b-1", "stella@observatory.org", nil, 1, "hard", "general", "550", "msg-1", nil, true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ses_complaint_records WHERE email = $1")).
		WithArgs("stella@observatory.org").
		WillReturnRows(sqlmock.NewRows(complaintCols))

	res := inspectEmail(context.Background(), db, " Stella@Observatory.org ")
	require.True(t, res.Passed)
	assert.Equal(t, "stella@observatory.org", res.Name)
	assert.Contains(t, res.Detail, "suppressed: yes (reason=hard_bounce, since=2026-10-19T12:00:00Z)")
	assert.Contains(t, res.Detail, "bounces: 1 (latest hard/general")
	assert.NotContains(t, res.Detail, "complaints")
}

func TestInspectEmail_NoFeedback(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM email_suppressions WHERE email = $1")).
		WillReturnRows(sqlmock.NewRows(suppressionCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ses_bounce_records WHERE email = $1")).
		WillReturnRows(sqlmock.NewRows(bounceCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ses_complaint_records WHERE email = $1")).
		WillReturnRows(sqlmock.NewRows(complaintCols))

	res := inspectEmail(context.Background(), db, "clean@sky.net")
	assert.True(t, res.Passed)
	assert.Equal(t, "no feedback recorded", res.Detail)
}

func TestInspectEmail_LookupError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM email_suppressions WHERE email = $1")).
		WillReturnError(errors.New("connection reset"))

	res := inspectEmail(context.Background(), db, "a@x.com")
	assert.False(t, res.Passed)
	assert.Contains(t, res.Detail, "connection reset")
}

func TestPrintReport(t *testing.T) {
	assert.True(t, printReport([]checkResult{{Name: "a", Passed: true}}))
	assert.False(t, printReport([]checkResult{{Name: "a", Passed: true}, {Name: "b", Detail: "x\ny"}}))
}
