package models

import (
	"time"
)

type OutcomeKind string

const (
	OutcomeIgnored         OutcomeKind = "Ignored"
	OutcomeSuccess         OutcomeKind = "Success"
	OutcomeCommandNotFound OutcomeKind = "CommandNotFound"
	OutcomePredicateDenied OutcomeKind = "PredicateDenied"
	OutcomeCheckFailed     OutcomeKind = "CheckFailed"
	OutcomeHandlerFailed   OutcomeKind = "HandlerFailed"
)

// DispatchOutcome is the result of one pass through the dispatcher
type DispatchOutcome struct {
	Kind    OutcomeKind
	Command string
	// Reason is set for PredicateDenied outcomes
	Reason ReasonCode
	Detail []string
	// RetryAfter is set for OnCooldown denials
	RetryAfter time.Duration
	// Err is set for CheckFailed and HandlerFailed outcomes
	Err error
}

// Failed reports whether the outcome needs to go through the error classifier
func (o DispatchOutcome) Failed() bool {
	return o.Kind != OutcomeSuccess && o.Kind != OutcomeIgnored
}

func Ignored() DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeIgnored}
}

func Succeeded(command string) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeSuccess, Command: command}
}

func CommandNotFound(name string) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeCommandNotFound, Command: name, Reason: ReasonCommandNotFound}
}

func PredicateDenied(command string, result PredicateResult) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomePredicateDenied, Command: command, Reason: result.Reason, Detail: result.Detail}
}

func OnCooldown(command string, retryAfter time.Duration) DispatchOutcome {
	return DispatchOutcome{
		Kind:       OutcomePredicateDenied,
		Command:    command,
		Reason:     ReasonOnCooldown,
		RetryAfter: retryAfter,
	}
}

func CheckFailed(command string, err error) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeCheckFailed, Command: command, Err: err}
}

func HandlerFailed(command string, err error) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeHandlerFailed, Command: command, Err: err}
}
