package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func fixedNow(l *PG, now time.Time) *PG {
	l.now = func() time.Time { return now }
	return l
}

func TestAllow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ip := HashIP("10.0.0.1")
	cases := []struct {
		name    string
		row     *time.Time
		err     error
		wantOK  bool
		wantDur time.Duration
		wantErr bool
	}{
		{name: "no row", err: pgx.ErrNoRows, wantOK: true},
		{name: "blocked", row: ptr(now.Add(10 * time.Minute)), wantDur: 10 * time.Minute},
		{name: "expired block", row: ptr(now.Add(-time.Minute)), wantOK: true},
		{name: "db error", err: errors.New("boom"), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := newMock(t)
			l := fixedNow(NewPG(mock, Policy{}), now)

			exp := mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter WHERE username=\$1 AND ip_hash=\$2`).
				WithArgs("jane@example.com", ip)
			if tc.err != nil {
				exp.WillReturnError(tc.err)
			} else {
				exp.WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(*tc.row))
			}

			ok, dur, err := l.Allow(context.Background(), " Jane@Example.com", ip)
			if tc.wantErr {
				require.Error(t, err)
				require.False(t, ok)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantOK, ok)
			require.Equal(t, tc.wantDur, dur)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSuccess_Resets(t *testing.T) {
	mock := newMock(t)
	l := NewPG(mock, DefaultPolicy)
	ip := HashIP("10.0.0.1")

	mock.ExpectExec(`INSERT INTO auth_limiter`).
		WithArgs("u@x.io", ip).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, l.Success(context.Background(), "u@x.io", ip))

	mock.ExpectExec(`INSERT INTO auth_limiter`).
		WithArgs("u@x.io", ip).
		WillReturnError(errors.New("exec fail"))
	require.Error(t, l.Success(context.Background(), "u@x.io", ip))
}

func TestFailure_BelowThreshold(t *testing.T) {
	mock := newMock(t)
	l := NewPG(mock, Policy{Window: 5 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute})
	ip := HashIP("10.0.0.1")

	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs("u@x.io", ip, 5*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(2))
	blocked, dur, err := l.Failure(context.Background(), "u@x.io", ip)
	require.NoError(t, err)
	require.False(t, blocked)
	require.Zero(t, dur)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_BlocksAtThreshold(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := fixedNow(NewPG(mock, Policy{Window: 5 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute}), now)
	ip := HashIP("10.0.0.1")

	mock.ExpectQuery(`RETURNING fail_count`).
		WithArgs("u@x.io", ip, 5*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(5))
	mock.ExpectExec(`UPDATE auth_limiter SET blocked_until=\$3 WHERE username=\$1 AND ip_hash=\$2`).
		WithArgs("u@x.io", ip, now.Add(10*time.Minute)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	blocked, dur, err := l.Failure(context.Background(), "u@x.io", ip)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 10*time.Minute, dur)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailure_QueryError(t *testing.T) {
	mock := newMock(t)
	l := NewPG(mock, DefaultPolicy)

	mock.ExpectQuery(`RETURNING fail_count`).WillReturnError(errors.New("query error"))
	_, _, err := l.Failure(context.Background(), "u", nil)
	require.Error(t, err)
}

func TestHashIP_IgnoresPort(t *testing.T) {
	t.Parallel()

	require.Equal(t, HashIP("1.2.3.4"), HashIP("1.2.3.4:5555"))
	require.NotEqual(t, HashIP("1.2.3.4"), HashIP("5.6.7.8"))
	require.Len(t, HashIP("::1"), 32)
}

func ptr[T any](v T) *T { return &v }
