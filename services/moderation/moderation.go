package moderation

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/samber/mo"

	"botfoundation/core"
	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services"
)

// BlacklistRepository defines the persistence operations on the blacklist table
type BlacklistRepository interface {
	CreateBlacklistEntry(ctx context.Context, userID string, createdAt time.Time) (bool, error)
	GetBlacklistEntry(ctx context.Context, userID string) (mo.Option[*models.BlacklistEntry], error)
	ExistsBlacklistEntry(ctx context.Context, userID string) (bool, error)
	ListBlacklistEntries(ctx context.Context) ([]*models.BlacklistEntry, error)
	DeleteBlacklistEntry(ctx context.Context, userID string) (bool, error)
}

// WarnsRepository defines the persistence operations on the warns table
type WarnsRepository interface {
	CreateWarn(ctx context.Context, warn *models.WarnRecord) error
	GetWarnsByUserAndGuild(ctx context.Context, userID, guildID string) ([]*models.WarnRecord, error)
	CountWarnsByUserAndGuild(ctx context.Context, userID, guildID string) (int, error)
	DeleteWarn(ctx context.Context, id int64, guildID string) (bool, error)
}

type ModerationService struct {
	blacklistRepo BlacklistRepository
	warnsRepo     WarnsRepository
	txManager     services.TransactionManager
	now           func() time.Time
}

func NewModerationService(
	blacklistRepo BlacklistRepository,
	warnsRepo WarnsRepository,
	txManager services.TransactionManager,
) *ModerationService {
	return &ModerationService{
		blacklistRepo: blacklistRepo,
		warnsRepo:     warnsRepo,
		txManager:     txManager,
		now:           time.Now,
	}
}

// WithClock overrides the clock used to stamp new records
func (s *ModerationService) WithClock(now func() time.Time) *ModerationService {
	s.now = now
	return s
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistenceUnavailable, err)
}

func (s *ModerationService) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user ID cannot be empty")
	}

	exists, err := s.blacklistRepo.ExistsBlacklistEntry(ctx, userID)
	if err != nil {
		return false, unavailable("failed to check blacklist", err)
	}

	return exists, nil
}

func (s *ModerationService) GetBlacklistEntry(
	ctx context.Context,
	userID string,
) (mo.Option[*models.BlacklistEntry], error) {
	if userID == "" {
		return mo.None[*models.BlacklistEntry](), fmt.Errorf("user ID cannot be empty")
	}

	maybeEntry, err := s.blacklistRepo.GetBlacklistEntry(ctx, userID)
	if err != nil {
		return mo.None[*models.BlacklistEntry](), unavailable("failed to get blacklist entry", err)
	}

	return maybeEntry, nil
}

func (s *ModerationService) AddBlacklistEntry(ctx context.Context, userID string) (bool, error) {
	log.Info("📋 Starting to add blacklist entry", "user_id", userID)
	if userID == "" {
		return false, fmt.Errorf("user ID cannot be empty")
	}

	created, err := s.blacklistRepo.CreateBlacklistEntry(ctx, userID, s.now())
	if err != nil {
		return false, unavailable("failed to add blacklist entry", err)
	}

	if !created {
		log.Info("📋 User is already blacklisted", "user_id", userID)
		return false, nil
	}

	log.Info("📋 Completed successfully - added blacklist entry", "user_id", userID)
	return true, nil
}

func (s *ModerationService) RemoveBlacklistEntry(ctx context.Context, userID string) error {
	log.Info("📋 Starting to remove blacklist entry", "user_id", userID)
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	deleted, err := s.blacklistRepo.DeleteBlacklistEntry(ctx, userID)
	if err != nil {
		return unavailable("failed to remove blacklist entry", err)
	}

	if !deleted {
		return fmt.Errorf("blacklist entry for user %s: %w", userID, core.ErrNotFound)
	}

	log.Info("📋 Completed successfully - removed blacklist entry", "user_id", userID)
	return nil
}

func (s *ModerationService) ListBlacklist(ctx context.Context) ([]*models.BlacklistEntry, error) {
	entries, err := s.blacklistRepo.ListBlacklistEntries(ctx)
	if err != nil {
		return nil, unavailable("failed to list blacklist", err)
	}

	return entries, nil
}

func (s *ModerationService) newWarn(userID, guildID, moderatorID, reason string) (*models.WarnRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if guildID == "" {
		return nil, fmt.Errorf("guild ID cannot be empty")
	}
	if moderatorID == "" {
		return nil, fmt.Errorf("moderator ID cannot be empty")
	}
	if utf8.RuneCountInString(reason) > models.MaxWarnReasonLength {
		return nil, fmt.Errorf("warn reason cannot exceed %d characters", models.MaxWarnReasonLength)
	}

	return &models.WarnRecord{
		UserID:      userID,
		GuildID:     guildID,
		ModeratorID: moderatorID,
		Reason:      reason,
		CreatedAt:   s.now(),
	}, nil
}

func (s *ModerationService) AddWarn(
	ctx context.Context,
	userID, guildID, moderatorID, reason string,
) (*models.WarnRecord, error) {
	log.Info("📋 Starting to add warn", "user_id", userID, "guild_id", guildID, "moderator_id", moderatorID)
	warn, err := s.newWarn(userID, guildID, moderatorID, reason)
	if err != nil {
		return nil, err
	}

	if err := s.warnsRepo.CreateWarn(ctx, warn); err != nil {
		return nil, unavailable("failed to add warn", err)
	}

	log.Info("📋 Completed successfully - added warn", "warn_id", warn.ID)
	return warn, nil
}

func (s *ModerationService) WarnUser(
	ctx context.Context,
	userID, guildID, moderatorID, reason string,
) (*models.WarnRecord, int, error) {
	log.Info("📋 Starting to warn user", "user_id", userID, "guild_id", guildID, "moderator_id", moderatorID)
	warn, err := s.newWarn(userID, guildID, moderatorID, reason)
	if err != nil {
		return nil, 0, err
	}

	var count int
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.warnsRepo.CreateWarn(ctx, warn); err != nil {
			return err
		}

		var err error
		count, err = s.warnsRepo.CountWarnsByUserAndGuild(ctx, userID, guildID)
		return err
	})
	if err != nil {
		return nil, 0, unavailable("failed to warn user", err)
	}

	log.Info("📋 Completed successfully - warned user", "warn_id", warn.ID, "total_warns", count)
	return warn, count, nil
}

func (s *ModerationService) ListWarns(ctx context.Context, userID, guildID string) ([]*models.WarnRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}
	if guildID == "" {
		return nil, fmt.Errorf("guild ID cannot be empty")
	}

	warns, err := s.warnsRepo.GetWarnsByUserAndGuild(ctx, userID, guildID)
	if err != nil {
		return nil, unavailable("failed to list warns", err)
	}

	return warns, nil
}

func (s *ModerationService) RemoveWarn(ctx context.Context, warnID int64, guildID string) error {
	log.Info("📋 Starting to remove warn", "warn_id", warnID, "guild_id", guildID)
	if guildID == "" {
		return fmt.Errorf("guild ID cannot be empty")
	}

	deleted, err := s.warnsRepo.DeleteWarn(ctx, warnID, guildID)
	if err != nil {
		return unavailable("failed to remove warn", err)
	}

	if !deleted {
		return fmt.Errorf("warn %d: %w", warnID, core.ErrNotFound)
	}

	log.Info("📋 Completed successfully - removed warn", "warn_id", warnID)
	return nil
}
