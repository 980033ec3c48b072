package model

import "time"

// RefreshToken is one row of the revocation ledger. The raw token is a JWT
// carrying the JTI; only the JTI is stored. A row with RevokedAt set must
// never again yield an access token, even before ExpiresAt.
type RefreshToken struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	JTI       string     `gorm:"uniqueIndex;size:36;not null" json:"jti"`
	AccountID int64      `gorm:"index;not null" json:"account_id"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Revoked reports whether the token has been explicitly invalidated.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token's natural lifetime has passed.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
