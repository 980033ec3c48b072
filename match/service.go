// Package match creates game sessions and their per-round rows, and hands
// the realtime gateway a websocket endpoint reference for each one.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pongarena/server/config"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Created is the hand-off returned to the caller: everything a client
// needs to join the realtime gateway.
type Created struct {
	Match    *model.Match  `json:"match"`
	Rounds   []model.Round `json:"rounds"`
	Endpoint string        `json:"endpoint"`
}

// Service creates matches and rounds.
type Service struct {
	db     *gorm.DB
	cfg    config.MatchConfig
	logger *zap.Logger
}

// NewService creates a match Service.
func NewService(gdb *gorm.DB, cfg config.MatchConfig, logger *zap.Logger) *Service {
	return &Service{db: gdb, cfg: cfg, logger: logger}
}

// Create schedules a match between two players and seeds its rounds in one
// transaction. rounds <= 0 means the configured default; the count is
// capped at the configured maximum. Private matches get a uuid join code.
func (s *Service) Create(ctx context.Context, player1ID, player2ID int64, matchType string, rounds int) (*Created, error) {
	if matchType != model.MatchPublic && matchType != model.MatchPrivate {
		return nil, errcode.ErrInvalidMatchType
	}
	if rounds <= 0 {
		rounds = s.cfg.DefaultRounds
	}
	if s.cfg.MaxRounds > 0 && rounds > s.cfg.MaxRounds {
		rounds = s.cfg.MaxRounds
	}

	m := &model.Match{
		Player1ID: player1ID,
		Player2ID: player2ID,
		Type:      matchType,
	}
	if matchType == model.MatchPrivate {
		code := uuid.NewString()
		m.PrivateCode = &code
	}

	var created []model.Round
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []int64{player1ID, player2ID} {
			var count int64
			if err := tx.Model(&model.Player{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return errcode.ErrMatchPlayerNotFound
			}
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		for i := 0; i < rounds; i++ {
			r := model.Round{
				MatchID:        m.ID,
				Player1ID:      player1ID,
				Player2ID:      player2ID,
				BallPosition:   startingBall(),
				PaddlePosition: startingPaddles(),
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
			created = append(created, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match created",
		zap.Int64("match_id", m.ID),
		zap.String("type", m.Type),
		zap.Int("rounds", len(created)))
	return &Created{
		Match:    m,
		Rounds:   created,
		Endpoint: s.Endpoint(m.ID),
	}, nil
}

// Get returns a match and its rounds.
func (s *Service) Get(ctx context.Context, matchID int64) (*Created, error) {
	var m model.Match
	if err := s.db.WithContext(ctx).First(&m, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrMatchNotFound
		}
		return nil, err
	}
	var rounds []model.Round
	if err := s.db.WithContext(ctx).Where("match_id = ?", matchID).Order("id").Find(&rounds).Error; err != nil {
		return nil, err
	}
	return &Created{Match: &m, Rounds: rounds, Endpoint: s.Endpoint(m.ID)}, nil
}

// Endpoint builds the websocket reference the gateway serves the match on.
func (s *Service) Endpoint(matchID int64) string {
	return fmt.Sprintf("%s%d", s.cfg.EndpointBase, matchID)
}

func startingBall() datatypes.JSON {
	b, _ := json.Marshal(map[string]int{"x": model.BallStartX, "y": model.BallStartY})
	return datatypes.JSON(b)
}

func startingPaddles() datatypes.JSON {
	b, _ := json.Marshal(map[string]int{"l": model.PaddleStartY, "r": model.PaddleStartY})
	return datatypes.JSON(b)
}
