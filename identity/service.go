package identity

import (
	"context"
	"errors"

	"github.com/pongarena/server/auth"
	"github.com/pongarena/server/db"
	"github.com/pongarena/server/errcode"
	"github.com/pongarena/server/model"
	"github.com/pongarena/server/presence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the player-profile lifecycle. Every operation that mutates
// an existing account demands the current password again; a stolen access
// token alone cannot rename, re-key or destroy an account.
type Service struct {
	db       *gorm.DB
	tokens   *auth.Authority
	presence *presence.Manager
	logger   *zap.Logger
}

// NewService creates an identity Service.
func NewService(gdb *gorm.DB, tokens *auth.Authority, pm *presence.Manager, logger *zap.Logger) *Service {
	return &Service{db: gdb, tokens: tokens, presence: pm, logger: logger}
}

// Register creates an Account and its Player profile in one transaction.
// A name collision, including one lost to a concurrent registration, comes
// back as the name-taken conflict.
func (s *Service) Register(ctx context.Context, name, password, confirmation string) (*model.Player, error) {
	if name == "" {
		return nil, errcode.ErrNameRequired
	}
	if password == "" {
		return nil, errcode.ErrPasswordRequired
	}
	if password != confirmation {
		return nil, errcode.ErrPasswordMismatch
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	player := &model.Player{Name: name}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc := &model.Account{PasswordHash: hash}
		if err := tx.Create(acc).Error; err != nil {
			return err
		}
		player.AccountID = acc.ID
		return tx.Create(player).Error
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errcode.ErrNameTaken
		}
		return nil, err
	}

	s.logger.Info("player registered",
		zap.Int64("player_id", player.ID),
		zap.String("name", player.Name))
	return player, nil
}

// Login verifies credentials and issues a token pair. Unknown name and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, name, password string) (*model.Player, *auth.TokenPair, error) {
	if name == "" || password == "" {
		return nil, nil, errcode.ErrInvalidCredentials
	}

	var player model.Player
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errcode.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	var acc model.Account
	if err := s.db.WithContext(ctx).First(&acc, player.AccountID).Error; err != nil {
		return nil, nil, err
	}
	if !CheckPassword(acc.PasswordHash, password) {
		return nil, nil, errcode.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(ctx, acc.ID)
	if err != nil {
		return nil, nil, err
	}

	// Best-effort: the online flag is presentation state, not part of the
	// login contract.
	_ = s.db.WithContext(ctx).Model(&player).Update("online", true).Error
	player.Online = true
	s.presence.SetOnline(player.ID)

	return &player, pair, nil
}

// Logout revokes the supplied refresh token and marks the player offline.
// A missing token is an error, not a no-op.
func (s *Service) Logout(ctx context.Context, accountID int64, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return err
	}

	var player model.Player
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&player).Error; err == nil {
		_ = s.db.WithContext(ctx).Model(&player).Update("online", false).Error
		s.presence.SetOffline(player.ID)
	}
	return nil
}

// Rename changes the display name after password re-proof. The unique
// index backs up the collision pre-check under concurrency.
func (s *Service) Rename(ctx context.Context, accountID int64, newName, currentPassword string) (*model.Player, error) {
	if newName == "" {
		return nil, errcode.ErrNameRequired
	}
	if err := s.verifyPassword(ctx, accountID, currentPassword); err != nil {
		return nil, err
	}

	var player model.Player
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrPlayerNotFound
		}
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Player{}).
			Where("name = ? AND id <> ?", newName, player.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errcode.ErrNameTaken
		}
		return tx.Model(&player).Update("name", newName).Error
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errcode.ErrNameTaken
		}
		return nil, err
	}
	player.Name = newName
	return &player, nil
}

// ChangePassword re-keys the account after current-password proof.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, current, newPassword, confirmation string) error {
	if err := s.verifyPassword(ctx, accountID, current); err != nil {
		return err
	}
	if newPassword == "" {
		return errcode.ErrPasswordRequired
	}
	if newPassword != confirmation {
		return errcode.ErrPasswordMismatch
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", accountID).
		Update("password_hash", hash).Error
}

// Delete destroys the account and everything it owns in one transaction:
// profile, friendships on either side, blocks on either side, and all
// outstanding refresh tokens. A concurrent reader sees the account whole
// or gone, never half-deleted.
func (s *Service) Delete(ctx context.Context, accountID int64, currentPassword string) error {
	if err := s.verifyPassword(ctx, accountID, currentPassword); err != nil {
		return err
	}

	var playerID int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var player model.Player
		if err := tx.Where("account_id = ?", accountID).First(&player).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.ErrPlayerNotFound
			}
			return err
		}
		playerID = player.ID

		if err := tx.Where("player_id = ? OR friend_id = ?", player.ID, player.ID).
			Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blocker_id = ? OR blocked_id = ?", player.ID, player.ID).
			Delete(&model.Block{}).Error; err != nil {
			return err
		}
		if err := s.tokens.RevokeAll(tx, accountID); err != nil {
			return err
		}
		if err := tx.Delete(&player).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Account{}, accountID).Error
	})
	if err != nil {
		return err
	}

	s.presence.SetOffline(playerID)
	s.logger.Info("account deleted",
		zap.Int64("account_id", accountID),
		zap.Int64("player_id", playerID))
	return nil
}

// GetProfile returns the player profile owned by an account.
func (s *Service) GetProfile(ctx context.Context, accountID int64) (*model.Player, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).Where("account_id = ?", accountID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

// FindPlayer returns a player profile by its public ID.
func (s *Service) FindPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}

// verifyPassword is the re-proof gate for destructive operations.
func (s *Service) verifyPassword(ctx context.Context, accountID int64, password string) error {
	if password == "" {
		return errcode.ErrPasswordRequired
	}
	var acc model.Account
	if err := s.db.WithContext(ctx).First(&acc, accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errcode.ErrPlayerNotFound
		}
		return err
	}
	if !CheckPassword(acc.PasswordHash, password) {
		return errcode.ErrWrongPassword
	}
	return nil
}
