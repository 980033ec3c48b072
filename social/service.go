// Package social implements the friendship and block state machines and
// publishes the resulting events for the SSE stream.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pongarena/server/cache"
	"github.com/pongarena/server/db"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/model"
	"github.com/pongarena/server/presence"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Event types published on the recipient's social channel.
const (
	EventFriendRequest = "friend.request"
	EventFriendAccept  = "friend.accept"
	EventFriendReject  = "friend.reject"
	EventFriendRemoved = "friend.removed"
	EventBlocked       = "player.blocked"
)

// Channel returns the pub/sub channel a player listens on.
func Channel(playerID int64) string {
	return fmt.Sprintf("social:%d", playerID)
}

// Event is the payload published for the SSE stream.
type Event struct {
	Type         string `json:"type"`
	FriendshipID int64  `json:"friendship_id,omitempty"`
	PlayerID     int64  `json:"player_id"`
	PlayerName   string `json:"player_name"`
}

// FriendEntry is one row of a player's friend list, decorated with the
// counterpart's live online state.
type FriendEntry struct {
	Friendship model.Friendship `json:"friendship"`
	FriendID   int64            `json:"friend_id"`
	FriendName string           `json:"friend_name"`
	Online     bool             `json:"online"`
}

// Service drives friendship and block transitions. Every mutating method
// takes the caller's player ID explicitly; authorization against the
// access token happens at the boundary.
type Service struct {
	db       *gorm.DB
	pubsub   cache.PubSub
	presence *presence.Manager
	logger   *zap.Logger
}

// NewService creates a social Service.
func NewService(gdb *gorm.DB, ps cache.PubSub, pm *presence.Manager, logger *zap.Logger) *Service {
	return &Service{db: gdb, pubsub: ps, presence: pm, logger: logger}
}

// SendRequest opens a pending friendship from initiator to recipient.
// Checks run in a fixed order and the first failure wins: self-request,
// duplicate pending in either direction, already friends, then blocks.
// Both player rows are locked for the duration so two concurrent sends
// for the same pair serialize instead of producing twin pending rows.
func (s *Service) SendRequest(ctx context.Context, initiatorID, recipientID int64) (*model.Friendship, error) {
	if initiatorID == recipientID {
		return nil, errcode.ErrSelfRequest
	}

	var row model.Friendship
	var initiator model.Player
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockPair(tx, initiatorID, recipientID, &initiator); err != nil {
			return err
		}

		var existing model.Friendship
		err := tx.Where(
			"(player_id = ? AND friend_id = ?) OR (player_id = ? AND friend_id = ?)",
			initiatorID, recipientID, recipientID, initiatorID,
		).Where("status <> ?", model.FriendshipRejected).
			Order("id").First(&existing).Error
		if err == nil {
			switch {
			case existing.Status == model.FriendshipAccepted:
				return errcode.ErrAlreadyFriends
			case existing.PlayerID == initiatorID:
				return errcode.ErrRequestAlreadySent
			default:
				return errcode.ErrRequestAlreadyReceived
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var blocked int64
		if err := tx.Model(&model.Block{}).
			Where("blocker_id = ? AND blocked_id = ?", initiatorID, recipientID).
			Count(&blocked).Error; err != nil {
			return err
		}
		if blocked > 0 {
			return errcode.ErrYouBlockedPlayer
		}
		if err := tx.Model(&model.Block{}).
			Where("blocker_id = ? AND blocked_id = ?", recipientID, initiatorID).
			Count(&blocked).Error; err != nil {
			return err
		}
		if blocked > 0 {
			return errcode.ErrBlockedByPlayer
		}

		row = model.Friendship{
			PlayerID: initiatorID,
			FriendID: recipientID,
			Status:   model.FriendshipPending,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, recipientID, Event{
		Type:         EventFriendRequest,
		FriendshipID: row.ID,
		PlayerID:     initiatorID,
		PlayerName:   initiator.Name,
	})
	return &row, nil
}

// Respond accepts or rejects a pending request. Only the recipient may
// respond, and both outcomes are terminal for the row.
func (s *Service) Respond(ctx context.Context, friendshipID, responderID int64, accept bool) (*model.Friendship, error) {
	var row model.Friendship
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, friendshipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrRequestNotFound
			}
			return err
		}
		if row.FriendID != responderID {
			return errcode.ErrNotRecipient
		}
		if row.Status != model.FriendshipPending {
			return errcode.ErrRequestAlreadyHandled
		}
		status := model.FriendshipRejected
		if accept {
			status = model.FriendshipAccepted
		}
		row.Status = status
		return tx.Model(&row).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	evType := EventFriendReject
	if accept {
		evType = EventFriendAccept
	}
	responder := s.playerName(ctx, responderID)
	s.publish(ctx, row.PlayerID, Event{
		Type:         evType,
		FriendshipID: row.ID,
		PlayerID:     responderID,
		PlayerName:   responder,
	})
	return &row, nil
}

// Cancel withdraws a pending request. Only the initiator may cancel, and
// the row is deleted rather than marked.
func (s *Service) Cancel(ctx context.Context, friendshipID, callerID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Friendship
		if err := tx.First(&row, friendshipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrRequestNotFound
			}
			return err
		}
		if row.PlayerID != callerID {
			return errcode.ErrNotInitiator
		}
		if row.Status != model.FriendshipPending {
			return errcode.ErrRequestAlreadyHandled
		}
		return tx.Delete(&row).Error
	})
}

// Remove ends an accepted friendship. Either party may remove; the row
// and any mirror row for the pair go in one transaction.
func (s *Service) Remove(ctx context.Context, friendshipID, callerID int64) error {
	var other int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.Friendship
		if err := tx.First(&row, friendshipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrRequestNotFound
			}
			return err
		}
		if !row.Involves(callerID) {
			return errcode.ErrNotFriend
		}
		if row.Status != model.FriendshipAccepted {
			return errcode.ErrNotAccepted
		}
		other = row.OtherParty(callerID)
		return tx.Where(
			"(player_id = ? AND friend_id = ?) OR (player_id = ? AND friend_id = ?)",
			row.PlayerID, row.FriendID, row.FriendID, row.PlayerID,
		).Delete(&model.Friendship{}).Error
	})
	if err != nil {
		return err
	}

	s.publish(ctx, other, Event{
		Type:       EventFriendRemoved,
		PlayerID:   callerID,
		PlayerName: s.playerName(ctx, callerID),
	})
	return nil
}

// ListFriendships returns every row the caller is a party to, in creation
// order, each decorated with the counterpart's name and online flag.
func (s *Service) ListFriendships(ctx context.Context, callerID int64) ([]FriendEntry, error) {
	var rows []model.Friendship
	err := s.db.WithContext(ctx).
		Where("player_id = ? OR friend_id = ?", callerID, callerID).
		Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.OtherParty(callerID))
	}
	names := map[int64]string{}
	if len(ids) > 0 {
		var players []model.Player
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
			return nil, err
		}
		for _, p := range players {
			names[p.ID] = p.Name
		}
	}

	entries := make([]FriendEntry, 0, len(rows))
	for _, r := range rows {
		other := r.OtherParty(callerID)
		entries = append(entries, FriendEntry{
			Friendship: r,
			FriendID:   other,
			FriendName: names[other],
			Online:     s.presence.IsOnline(other),
		})
	}
	return entries, nil
}

// Block records that blocker no longer wants contact from blockedID.
// Re-blocking an already blocked player succeeds without a second row.
// An accepted friendship between the pair is left alone.
func (s *Service) Block(ctx context.Context, blockerID, blockedID int64) (*model.Block, error) {
	if blockerID == blockedID {
		return nil, errcode.ErrSelfRequest
	}

	var target model.Player
	if err := s.db.WithContext(ctx).First(&target, blockedID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrPlayerNotFound
		}
		return nil, err
	}

	row := model.Block{BlockerID: blockerID, BlockedID: blockedID}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
		// Idempotent: hand back the existing row.
		if err := s.db.WithContext(ctx).
			Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
			First(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	}

	s.publish(ctx, blockedID, Event{
		Type:       EventBlocked,
		PlayerID:   blockerID,
		PlayerName: s.playerName(ctx, blockerID),
	})
	return &row, nil
}

// Unblock deletes a block the caller created.
func (s *Service) Unblock(ctx context.Context, callerID, blockID int64) error {
	var row model.Block
	if err := s.db.WithContext(ctx).First(&row, blockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.ErrBlockNotFound
		}
		return err
	}
	if row.BlockerID != callerID {
		return errcode.ErrNotYourBlock
	}
	return s.db.WithContext(ctx).Delete(&row).Error
}

// ListBlocks returns the caller's blocks in creation order.
func (s *Service) ListBlocks(ctx context.Context, callerID int64) ([]model.Block, error) {
	var rows []model.Block
	err := s.db.WithContext(ctx).
		Where("blocker_id = ?", callerID).
		Order("id").Find(&rows).Error
	return rows, err
}

// lockPair loads both player rows under FOR UPDATE (ascending ID order to
// avoid deadlock) where the dialect supports row locks. SQLite has a
// single writer, so the plain loads are enough there. The initiator row
// is returned for event decoration.
func (s *Service) lockPair(tx *gorm.DB, initiatorID, recipientID int64, initiator *model.Player) error {
	first, second := initiatorID, recipientID
	if second < first {
		first, second = second, first
	}
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	for _, id := range []int64{first, second} {
		var p model.Player
		if err := q.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrPlayerNotFound
			}
			return err
		}
		if p.ID == initiatorID {
			*initiator = p
		}
	}
	return nil
}

// publish is best-effort: a lost event degrades the live stream, never
// the transition itself.
func (s *Service) publish(ctx context.Context, playerID int64, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.pubsub.Publish(ctx, Channel(playerID), string(payload)); err != nil {
		s.logger.Warn("social event publish failed",
			zap.String("type", ev.Type),
			zap.Int64("player_id", playerID),
			zap.Error(err))
	}
}

func (s *Service) playerName(ctx context.Context, playerID int64) string {
	var p model.Player
	if err := s.db.WithContext(ctx).First(&p, playerID).Error; err != nil {
		return ""
	}
	return p.Name
}
