package model

import "time"

// Friendship statuses. Pending is the only state that still transitions;
// accepted and rejected are terminal for the row.
const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
	FriendshipRejected = "rejected"
)

// Friendship is an ordered (initiator, recipient) pair. The pair {A,B} are
// friends iff an accepted row exists in either direction. Rejected rows are
// retained; they never block a fresh request.
type Friendship struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID  int64     `gorm:"index:idx_friendship_pair;not null" json:"player_id"`
	FriendID  int64     `gorm:"index:idx_friendship_pair;not null" json:"friend_id"`
	Status    string    `gorm:"size:16;default:pending;not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Involves reports whether the given player is a party to the row.
func (f *Friendship) Involves(playerID int64) bool {
	return f.PlayerID == playerID || f.FriendID == playerID
}

// OtherParty returns the counterpart of the given player in the pair.
func (f *Friendship) OtherParty(playerID int64) int64 {
	if f.PlayerID == playerID {
		return f.FriendID
	}
	return f.PlayerID
}
