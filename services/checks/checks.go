package checks

import (
	"context"
	"fmt"

	"botfoundation/core"
	"botfoundation/models"
)

// BlacklistStore is the part of the moderation service the blacklist check needs
type BlacklistStore interface {
	IsBlacklisted(ctx context.Context, userID string) (bool, error)
}

// PermissionChecker resolves the effective permission bits of a member in a channel
type PermissionChecker interface {
	MemberPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error)
}

// IsOwner allows only the configured owner ids
func IsOwner(ownerIDs []string) models.Predicate {
	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}

	return models.Predicate{
		Name: "is_owner",
		Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
			if _, ok := owners[inv.UserID]; ok {
				return models.Allow(), nil
			}
			return models.Deny(models.ReasonNotOwner), nil
		},
	}
}

// NotBlacklisted denies users present in the blacklist. A store failure is
// returned as an error, never as a denial.
func NotBlacklisted(store BlacklistStore) models.Predicate {
	return models.Predicate{
		Name: "not_blacklisted",
		Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
			blacklisted, err := store.IsBlacklisted(ctx, inv.UserID)
			if err != nil {
				if core.IsPersistenceUnavailable(err) {
					return models.PredicateResult{}, err
				}
				return models.PredicateResult{}, fmt.Errorf("failed to check blacklist: %w: %w", core.ErrPersistenceUnavailable, err)
			}
			if blacklisted {
				return models.Deny(models.ReasonBlacklisted), nil
			}
			return models.Allow(), nil
		},
	}
}

// GuildOnly denies invocations from direct messages
func GuildOnly() models.Predicate {
	return models.Predicate{
		Name: "guild_only",
		Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
			if !inv.InGuild() {
				return models.Deny(models.ReasonNoPrivateMessage), nil
			}
			return models.Allow(), nil
		},
	}
}

// HasPermissions requires the invoking member to hold every listed permission
func HasPermissions(checker PermissionChecker, perms ...models.Permission) models.Predicate {
	return models.Predicate{
		Name: "has_permissions",
		Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
			return checkPermissions(ctx, checker, inv, inv.UserID, models.ReasonMissingPermissions, perms)
		},
	}
}

// BotHasPermissions requires the agent itself to hold every listed permission
func BotHasPermissions(checker PermissionChecker, selfID func() string, perms ...models.Permission) models.Predicate {
	return models.Predicate{
		Name: "bot_has_permissions",
		Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
			return checkPermissions(ctx, checker, inv, selfID(), models.ReasonBotMissingPermissions, perms)
		},
	}
}

func checkPermissions(
	ctx context.Context,
	checker PermissionChecker,
	inv models.Invocation,
	userID string,
	reason models.ReasonCode,
	perms []models.Permission,
) (models.PredicateResult, error) {
	if !inv.InGuild() {
		return models.Deny(models.ReasonNoPrivateMessage), nil
	}

	granted, err := checker.MemberPermissions(ctx, inv.GuildID, inv.ChannelID, userID)
	if err != nil {
		return models.PredicateResult{}, fmt.Errorf("failed to resolve permissions for %s: %w", userID, err)
	}

	if missing := models.Missing(granted, perms...); len(missing) > 0 {
		return models.Deny(reason, missing...), nil
	}
	return models.Allow(), nil
}

// Evaluate runs predicates in order and stops at the first denial or error.
// It returns the name of the predicate that stopped evaluation, if any.
func Evaluate(
	ctx context.Context,
	predicates []models.Predicate,
	inv models.Invocation,
) (models.PredicateResult, string, error) {
	for _, predicate := range predicates {
		result, err := predicate.Check(ctx, inv)
		if err != nil {
			return models.PredicateResult{}, predicate.Name, fmt.Errorf("predicate %s: %w", predicate.Name, err)
		}
		if !result.Allowed {
			return result, predicate.Name, nil
		}
	}
	return models.Allow(), "", nil
}
