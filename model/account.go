package model

import "time"

// Account is the credential record behind a player profile.
// The password is only ever stored as a bcrypt hash.
type Account struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PasswordHash string    `gorm:"size:64;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Player is the public profile, 1:1 with Account.
// Name is globally unique; the index is what makes concurrent
// registrations with the same name collapse to a single winner.
type Player struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID int64     `gorm:"uniqueIndex;not null" json:"account_id"`
	Name      string    `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Online    bool      `gorm:"default:false" json:"online"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
