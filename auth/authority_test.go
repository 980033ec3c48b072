package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pongarena/server/auth"
	"github.com/pongarena/server/config"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/model"
	"github.com/pongarena/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAuthority(t *testing.T) (*auth.Authority, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
	return auth.NewAuthority(db, c, sec, zap.NewNop()), db
}

func TestIssuePairAndValidate(t *testing.T) {
	a, db := newAuthority(t)
	ctx := context.Background()

	pair, err := a.IssuePair(ctx, 42)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)

	accountID, err := a.ValidateAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), accountID)

	// A ledger row exists for the refresh token.
	var count int64
	db.Model(&model.RefreshToken{}).Where("account_id = ?", 42).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestValidateAccess_RejectsRefreshToken(t *testing.T) {
	a, _ := newAuthority(t)
	pair, err := a.IssuePair(context.Background(), 1)
	require.NoError(t, err)

	_, err = a.ValidateAccess(pair.Refresh)
	assert.ErrorIs(t, err, errcode.ErrInvalidToken)
}

func TestValidateAccess_Empty(t *testing.T) {
	a, _ := newAuthority(t)
	_, err := a.ValidateAccess("")
	assert.ErrorIs(t, err, errcode.ErrTokenRequired)
}

func TestRefresh(t *testing.T) {
	a, _ := newAuthority(t)
	ctx := context.Background()

	pair, err := a.IssuePair(ctx, 9)
	require.NoError(t, err)

	access, expiresAt, err := a.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.True(t, expiresAt.After(time.Now()))

	accountID, err := a.ValidateAccess(access)
	require.NoError(t, err)
	assert.Equal(t, int64(9), accountID)
}

func TestRevokeThenRefreshFails(t *testing.T) {
	a, _ := newAuthority(t)
	ctx := context.Background()

	pair, err := a.IssuePair(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, pair.Refresh))

	_, _, err = a.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, errcode.ErrTokenRevoked)
}

func TestRevokeTwice(t *testing.T) {
	a, _ := newAuthority(t)
	ctx := context.Background()

	pair, err := a.IssuePair(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, pair.Refresh))
	err = a.Revoke(ctx, pair.Refresh)
	assert.ErrorIs(t, err, errcode.ErrTokenRevoked)
}

func TestRevoke_Malformed(t *testing.T) {
	a, _ := newAuthority(t)
	assert.ErrorIs(t, a.Revoke(context.Background(), "not-a-token"), errcode.ErrInvalidToken)
	assert.ErrorIs(t, a.Revoke(context.Background(), ""), errcode.ErrTokenRequired)
}

func TestRefresh_UnknownLedgerRow(t *testing.T) {
	a, db := newAuthority(t)
	ctx := context.Background()

	pair, err := a.IssuePair(ctx, 5)
	require.NoError(t, err)

	// Simulate a purged ledger row: the JWT still parses but the
	// authority no longer recognizes it.
	require.NoError(t, db.Where("account_id = ?", 5).Delete(&model.RefreshToken{}).Error)

	_, _, err = a.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, errcode.ErrInvalidToken)
}

func TestRevokeAll(t *testing.T) {
	a, db := newAuthority(t)
	ctx := context.Background()

	p1, _ := a.IssuePair(ctx, 7)
	p2, _ := a.IssuePair(ctx, 7)
	other, _ := a.IssuePair(ctx, 8)

	require.NoError(t, a.RevokeAll(db, 7))

	_, _, err := a.Refresh(ctx, p1.Refresh)
	assert.ErrorIs(t, err, errcode.ErrTokenRevoked)
	_, _, err = a.Refresh(ctx, p2.Refresh)
	assert.ErrorIs(t, err, errcode.ErrTokenRevoked)

	// Unrelated account is untouched.
	_, _, err = a.Refresh(ctx, other.Refresh)
	assert.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	a, db := newAuthority(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.RefreshToken{
		JTI: "old", AccountID: 1, ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&model.RefreshToken{
		JTI: "live", AccountID: 1, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	n, err := a.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	db.Model(&model.RefreshToken{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
