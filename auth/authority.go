package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pongarena/server/cache"
	"github.com/pongarena/server/config"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/middleware"
	"github.com/pongarena/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TokenPair is the result of a successful login or registration.
type TokenPair struct {
	Access          string    `json:"access_token"`
	Refresh         string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

// Authority issues, validates and revokes token pairs. Refresh tokens are
// backed by a ledger row keyed by JTI; revocation flips the row and is
// mirrored into the cache so the hot path rarely touches the DB.
type Authority struct {
	db     *gorm.DB
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAuthority creates an Authority.
func NewAuthority(db *gorm.DB, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Authority {
	return &Authority{db: db, cache: c, sec: sec, logger: logger}
}

func revokedKey(jti string) string { return "revoked:" + jti }

// IssuePair creates an access/refresh pair bound to the account and
// records the refresh token in the ledger.
func (a *Authority) IssuePair(ctx context.Context, accountID int64) (*TokenPair, error) {
	now := time.Now()

	access, err := middleware.GenerateToken(accountID, middleware.TokenTypeAccess, "", a.sec.JWTSecret, a.sec.AccessTTL)
	if err != nil {
		return nil, err
	}

	jti := uuid.New().String()
	refresh, err := middleware.GenerateToken(accountID, middleware.TokenTypeRefresh, jti, a.sec.JWTSecret, a.sec.RefreshTTL)
	if err != nil {
		return nil, err
	}

	row := &model.RefreshToken{
		JTI:       jti,
		AccountID: accountID,
		ExpiresAt: now.Add(a.sec.RefreshTTL),
	}
	if err := a.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:          access,
		Refresh:         refresh,
		AccessExpiresAt: now.Add(a.sec.AccessTTL),
	}, nil
}

// ValidateAccess checks an access token by signature, expiry and type, and
// returns the bound account ID. No ledger lookup happens here: access
// tokens are not individually revocable.
func (a *Authority) ValidateAccess(tokenStr string) (int64, error) {
	if tokenStr == "" {
		return 0, errcode.ErrTokenRequired
	}
	claims, err := middleware.ParseToken(tokenStr, a.sec.JWTSecret)
	if err != nil || claims.TokenType != middleware.TokenTypeAccess {
		return 0, errcode.ErrInvalidToken
	}
	return claims.AccountID, nil
}

// parseRefresh validates the refresh JWT itself (signature, expiry, type)
// before any ledger lookup.
func (a *Authority) parseRefresh(tokenStr string) (*middleware.Claims, error) {
	if tokenStr == "" {
		return nil, errcode.ErrTokenRequired
	}
	claims, err := middleware.ParseToken(tokenStr, a.sec.JWTSecret)
	if err != nil || claims.TokenType != middleware.TokenTypeRefresh || claims.ID == "" {
		return nil, errcode.ErrInvalidToken
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new access token. A
// revoked or unknown refresh token never yields one.
func (a *Authority) Refresh(ctx context.Context, refreshStr string) (string, time.Time, error) {
	claims, err := a.parseRefresh(refreshStr)
	if err != nil {
		return "", time.Time{}, err
	}

	// Fast path: revocation mirrored in cache. Cache errors fall through
	// to the ledger row, which is authoritative.
	if revoked, cerr := a.cache.Exists(ctx, revokedKey(claims.ID)); cerr == nil && revoked {
		return "", time.Time{}, errcode.ErrTokenRevoked
	}

	var row model.RefreshToken
	if err := a.db.WithContext(ctx).Where("jti = ?", claims.ID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, errcode.ErrInvalidToken
		}
		return "", time.Time{}, err
	}
	now := time.Now()
	if row.Revoked() {
		a.mirrorRevocation(ctx, row.JTI, row.ExpiresAt)
		return "", time.Time{}, errcode.ErrTokenRevoked
	}
	if row.Expired(now) {
		return "", time.Time{}, errcode.ErrInvalidToken
	}

	access, err := middleware.GenerateToken(row.AccountID, middleware.TokenTypeAccess, "", a.sec.JWTSecret, a.sec.AccessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return access, now.Add(a.sec.AccessTTL), nil
}

// Revoke invalidates a refresh token. The single conditional UPDATE makes
// concurrent revocations race safely: exactly one caller flips the row,
// the rest see "already revoked".
func (a *Authority) Revoke(ctx context.Context, refreshStr string) error {
	claims, err := a.parseRefresh(refreshStr)
	if err != nil {
		return err
	}

	now := time.Now()
	res := a.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("jti = ? AND revoked_at IS NULL", claims.ID).
		Update("revoked_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var row model.RefreshToken
		if err := a.db.WithContext(ctx).Where("jti = ?", claims.ID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrInvalidToken
			}
			return err
		}
		return errcode.ErrTokenRevoked
	}

	a.mirrorRevocation(ctx, claims.ID, claims.ExpiresAt.Time)
	a.logger.Info("refresh token revoked", zap.Int64("account_id", claims.AccountID))
	return nil
}

// RevokeAll invalidates every outstanding refresh token for an account.
// Callers pass their own transaction handle so the revocation joins the
// account-deletion cascade.
func (a *Authority) RevokeAll(tx *gorm.DB, accountID int64) error {
	return tx.Model(&model.RefreshToken{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", time.Now()).Error
}

// PurgeExpired deletes ledger rows past their natural expiry. Revocation
// state for an expired token is irrelevant: the JWT itself no longer
// parses.
func (a *Authority) PurgeExpired(ctx context.Context) (int64, error) {
	res := a.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&model.RefreshToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		a.logger.Info("purged expired refresh tokens", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (a *Authority) mirrorRevocation(ctx context.Context, jti string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := a.cache.Set(ctx, revokedKey(jti), "1", ttl); err != nil {
		a.logger.Warn("revocation cache write failed", zap.Error(err))
	}
}
