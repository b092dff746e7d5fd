package appctx

import (
	"context"

	"botfoundation/clients"
	"botfoundation/config"
	"botfoundation/models"
	"botfoundation/services"
)

// Context key for storing the invocation being dispatched
type contextKey string

const InvocationContextKey contextKey = "invocation"

// SetInvocation adds the invocation to the dispatch context
func SetInvocation(ctx context.Context, inv models.Invocation) context.Context {
	return context.WithValue(ctx, InvocationContextKey, inv)
}

// GetInvocation extracts the invocation from the dispatch context
func GetInvocation(ctx context.Context) (models.Invocation, bool) {
	inv, ok := ctx.Value(InvocationContextKey).(models.Invocation)
	return inv, ok
}

// App holds the collaborators shared by the dispatcher, the scheduler and the
// command modules. It is built once at startup and passed by reference.
type App struct {
	Config     *config.AppConfig
	Commands   services.CommandCatalog
	Gateway    clients.Gateway
	Moderation services.ModerationService
	Audit      services.AuditLogger
}
