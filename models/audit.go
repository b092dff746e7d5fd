package models

type AuditLevel string

const (
	AuditLevelDebug AuditLevel = "debug"
	AuditLevelInfo  AuditLevel = "info"
	AuditLevelWarn  AuditLevel = "warn"
	AuditLevelError AuditLevel = "error"
)

// Stage is a step of the per-invocation dispatch state machine
type Stage string

const (
	StageReceived  Stage = "Received"
	StageResolving Stage = "Resolving"
	StageChecking  Stage = "Checking"
	StageExecuting Stage = "Executing"
	StageCompleted Stage = "Completed"
	StageFailed    Stage = "Failed"
)

// Terminal reports whether the stage ends a dispatch
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// AuditRecord is one structured entry written to the audit sink
type AuditRecord struct {
	Level     AuditLevel
	Component string
	Message   string
	Stage     Stage
	Fields    map[string]any
}
