package models

import (
	"context"
)

// ReasonCode identifies a case of the dispatch failure taxonomy
type ReasonCode string

const (
	ReasonCommandNotFound        ReasonCode = "CommandNotFound"
	ReasonNotOwner               ReasonCode = "NotOwner"
	ReasonBlacklisted            ReasonCode = "Blacklisted"
	ReasonOnCooldown             ReasonCode = "OnCooldown"
	ReasonNoPrivateMessage       ReasonCode = "NoPrivateMessage"
	ReasonMissingPermissions     ReasonCode = "MissingPermissions"
	ReasonBotMissingPermissions  ReasonCode = "BotMissingPermissions"
	ReasonMissingArgument        ReasonCode = "MissingArgument"
	ReasonHandlerFailed          ReasonCode = "HandlerFailed"
	ReasonPersistenceUnavailable ReasonCode = "PersistenceUnavailable"
	ReasonUnclassified           ReasonCode = "Unclassified"
)

// PredicateResult is either Allowed or Denied with a reason
type PredicateResult struct {
	Allowed bool
	Reason  ReasonCode
	// Detail carries case specific data, e.g. the names of missing permissions
	Detail []string
}

// Allow returns an Allowed result
func Allow() PredicateResult {
	return PredicateResult{Allowed: true}
}

// Deny returns a Denied result for the given reason
func Deny(reason ReasonCode, detail ...string) PredicateResult {
	return PredicateResult{Allowed: false, Reason: reason, Detail: detail}
}

// PredicateFunc evaluates a check for one invocation. A non-nil error means the
// check could not be evaluated at all; it is never a denial.
type PredicateFunc func(ctx context.Context, inv Invocation) (PredicateResult, error)

// Predicate is a named authorization check attached to a command
type Predicate struct {
	Name  string
	Check PredicateFunc
}
