package modules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"botfoundation/appctx"
	"botfoundation/clients"
	"botfoundation/config"
	"botfoundation/models"
	"botfoundation/services/moderation"
	"botfoundation/services/registry"
	"botfoundation/testutils"
)

const (
	ownerID  = "100"
	modID    = "200"
	targetID = "300"
)

type recordingReplier struct {
	mu        sync.Mutex
	responses []models.Response
	err       error
}

func (r *recordingReplier) Reply(ctx context.Context, response models.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response)
	return r.err
}

func (r *recordingReplier) last(t *testing.T) models.Response {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.responses, "expected a reply")
	return r.responses[len(r.responses)-1]
}

type testApp struct {
	app        *appctx.App
	registry   *registry.Registry
	gateway    *clients.MockGateway
	moderation *moderation.MockModerationService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Defaults()
	cfg.BotToken = "token"
	cfg.OwnerIDs = []string{ownerID}

	reg := registry.NewRegistry()
	gateway := &clients.MockGateway{}
	moderationService := &moderation.MockModerationService{}

	return &testApp{
		app: &appctx.App{
			Config:     cfg,
			Commands:   reg,
			Gateway:    gateway,
			Moderation: moderationService,
			Audit:      testutils.NewRecordingAuditLogger(),
		},
		registry:   reg,
		gateway:    gateway,
		moderation: moderationService,
	}
}

func invocation(command, userID string, args ...string) models.Invocation {
	inv := testutils.CreateTestInvocation(command, args...)
	inv.UserID = userID
	inv.CreatedAt = time.Now()
	for i, arg := range args {
		if i > 0 {
			inv.RawArgs += " "
		}
		inv.RawArgs += arg
	}
	return inv
}

func findCommand(t *testing.T, module Module, name string) *models.CommandDefinition {
	t.Helper()
	defs, err := module.Commands()
	require.NoError(t, err)
	for _, def := range defs {
		if def.Name == name {
			return def
		}
	}
	t.Fatalf("command %s not found in module %s", name, module.Name())
	return nil
}
