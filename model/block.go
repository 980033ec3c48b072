package model

import "time"

// Block is a unidirectional suppression relation: blocker prevents friend
// requests between itself and blocked, in both directions. The composite
// unique index makes duplicate blocks impossible at the store layer.
type Block struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockerID int64     `gorm:"uniqueIndex:idx_block_pair;not null" json:"blocker_id"`
	BlockedID int64     `gorm:"uniqueIndex:idx_block_pair;not null" json:"blocked_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
