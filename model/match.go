package model

import (
	"time"

	"gorm.io/datatypes"
)

// Match types.
const (
	MatchPublic  = "public"
	MatchPrivate = "private"
)

// Canonical starting positions for every round. The realtime gateway takes
// over from these values when the first client connects.
const (
	BallStartX   = 400
	BallStartY   = 200
	PaddleStartY = 150
)

// Match is a scheduled best-of-N game between two players. Private matches
// carry a join code the gateway requires from both clients.
type Match struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Player1ID   int64     `gorm:"index;not null" json:"player_1"`
	Player2ID   int64     `gorm:"index;not null" json:"player_2"`
	Type        string    `gorm:"size:16;default:public;not null" json:"type"`
	PrivateCode *string   `gorm:"size:36" json:"private_code,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Round is one per-round session row owned by a Match, seeded with the
// canonical ball and paddle positions.
type Round struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID        int64          `gorm:"index;not null" json:"match_id"`
	Player1ID      int64          `gorm:"not null" json:"player_1"`
	Player2ID      int64          `gorm:"not null" json:"player_2"`
	BallPosition   datatypes.JSON `json:"ball_position"`
	PaddlePosition datatypes.JSON `json:"paddle_position"`
	Score1         int            `gorm:"default:0" json:"score_1"`
	Score2         int            `gorm:"default:0" json:"score_2"`
	Finished       bool           `gorm:"default:false" json:"finished"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
}
