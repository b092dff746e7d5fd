package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"botfoundation/appctx"
	"botfoundation/clients"
	"botfoundation/config"
	"botfoundation/core"
	"botfoundation/models"
	"botfoundation/services/checks"
	"botfoundation/services/cooldown"
	"botfoundation/services/errorclassifier"
	"botfoundation/services/moderation"
	"botfoundation/services/registry"
	"botfoundation/testutils"
)

const (
	selfID  = "900"
	ownerID = "100"
	userID  = "200"
)

type testEnv struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
	gateway    *clients.MockGateway
	moderation *moderation.MockModerationService
	audit      *testutils.RecordingAuditLogger
	clock      *testutils.FakeClock
}

func setupDispatcher(t *testing.T, defs ...*models.CommandDefinition) *testEnv {
	t.Helper()

	cfg := config.Defaults()
	cfg.BotToken = "token"
	cfg.OwnerIDs = []string{ownerID}

	reg := registry.NewRegistry()
	require.NoError(t, reg.RegisterAll(defs...))
	reg.Seal()

	gateway := &clients.MockGateway{}
	moderationService := &moderation.MockModerationService{}
	audit := testutils.NewRecordingAuditLogger()
	clock := testutils.NewFakeClock(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))

	app := &appctx.App{
		Config:     cfg,
		Commands:   reg,
		Gateway:    gateway,
		Moderation: moderationService,
		Audit:      audit,
	}
	responder := errorclassifier.NewResponder(errorclassifier.NewClassifier(cfg.Prefix), gateway, audit)
	dispatcher := NewDispatcher(app, cooldown.NewTracker().WithClock(clock.Now), responder).WithClock(clock.Now)

	return &testEnv{
		dispatcher: dispatcher,
		registry:   reg,
		gateway:    gateway,
		moderation: moderationService,
		audit:      audit,
		clock:      clock,
	}
}

func message(authorID, content string) models.InboundMessage {
	return models.InboundMessage{
		MessageID:  "message-1",
		ChannelID:  "channel-1",
		GuildID:    "guild-1",
		AuthorID:   authorID,
		AuthorName: "tester",
		SelfID:     selfID,
		Content:    content,
	}
}

// countingHandler counts calls and replies "pong"
func countingHandler(calls *atomic.Int32) models.Handler {
	return func(ctx context.Context, inv models.Invocation, reply models.Replier) error {
		calls.Add(1)
		return reply.Reply(ctx, models.TextResponse("pong"))
	}
}

func countingPredicate(name string, result models.PredicateResult, calls *atomic.Int32) models.Predicate {
	return models.Predicate{
		Name: name,
		Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
			calls.Add(1)
			return result, nil
		},
	}
}

func expectErrorResponse(env *testEnv, contains string) {
	env.gateway.On("SendMessage", mock.Anything, "channel-1", mock.MatchedBy(func(response models.Response) bool {
		return response.Embed != nil &&
			response.Embed.Color == models.ColorError &&
			strings.Contains(response.Embed.Description, contains)
	})).Return(nil).Once()
}

func TestDispatch_Success(t *testing.T) {
	var calls atomic.Int32
	var received models.Invocation
	env := setupDispatcher(t, &models.CommandDefinition{
		Name:    "echo",
		Aliases: []string{"say"},
		Handler: func(ctx context.Context, inv models.Invocation, reply models.Replier) error {
			calls.Add(1)
			received = inv
			fromCtx, ok := appctx.GetInvocation(ctx)
			assert.True(t, ok)
			assert.Equal(t, inv.ID, fromCtx.ID)
			return reply.Reply(ctx, models.TextResponse(inv.RawArgs))
		},
	})
	env.gateway.On("SendMessage", mock.Anything, "channel-1", models.TextResponse("hello  world")).Return(nil).Once()

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!SAY hello  world"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "echo", outcome.Command)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "echo", received.CommandName)
	assert.Equal(t, []string{"hello", "world"}, received.Args)
	assert.Equal(t, userID, received.UserID)
	assert.True(t, core.IsValidULID(received.ID))
	assert.True(t, env.clock.Now().Equal(received.CreatedAt))
	env.gateway.AssertExpectations(t)

	assert.Equal(t, []models.Stage{
		models.StageReceived,
		models.StageResolving,
		models.StageChecking,
		models.StageExecuting,
		models.StageCompleted,
	}, env.audit.Stages())

	terminal := env.audit.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, models.AuditLevelInfo, terminal[0].Level)
	assert.Equal(t, "guild-1", terminal[0].Fields["guild_id"])
	for _, record := range env.audit.Records()[:4] {
		assert.Equal(t, models.AuditLevelDebug, record.Level)
		assert.Equal(t, received.ID, record.Fields["invocation_id"])
	}
}

func TestDispatch_MentionPrefix(t *testing.T) {
	var calls atomic.Int32
	env := setupDispatcher(t, &models.CommandDefinition{Name: "ping", Handler: countingHandler(&calls)})
	env.gateway.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "<@!900> ping"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatch_IgnoredEvents(t *testing.T) {
	var calls atomic.Int32
	env := setupDispatcher(t, &models.CommandDefinition{Name: "ping", Handler: countingHandler(&calls)})

	bot := message("555", "!ping")
	bot.AuthorIsBot = true

	tests := []struct {
		name string
		msg  models.InboundMessage
	}{
		{name: "self originated", msg: message(selfID, "!ping")},
		{name: "automated account", msg: bot},
		{name: "no prefix", msg: message(userID, "ping")},
		{name: "prefix only", msg: message(userID, "!")},
		{name: "mention of someone else", msg: message(userID, "<@123> ping")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// dispatching the same event twice is a no-op both times
			for i := 0; i < 2; i++ {
				outcome, err := env.dispatcher.Dispatch(context.Background(), tt.msg)
				require.NoError(t, err)
				assert.Equal(t, models.OutcomeIgnored, outcome.Kind)
			}
			assert.Empty(t, env.audit.Records())
			assert.Empty(t, env.gateway.Calls)
			assert.Equal(t, int32(0), calls.Load())
		})
	}
}

func TestDispatch_NotOwner(t *testing.T) {
	var calls atomic.Int32
	env := setupDispatcher(t, &models.CommandDefinition{
		Name:       "sync",
		Predicates: []models.Predicate{checks.IsOwner([]string{ownerID})},
		Handler:    countingHandler(&calls),
	})
	expectErrorResponse(env, "not the owner")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!sync"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePredicateDenied, outcome.Kind)
	assert.Equal(t, models.ReasonNotOwner, outcome.Reason)
	assert.Equal(t, int32(0), calls.Load())
	env.gateway.AssertExpectations(t)

	terminal := env.audit.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, "NotOwner", terminal[0].Fields["reason"])
	assert.Equal(t, userID, terminal[0].Fields["user_id"])
}

func TestDispatch_Blacklisted(t *testing.T) {
	var calls atomic.Int32
	store := &moderation.MockModerationService{}
	store.On("IsBlacklisted", mock.Anything, userID).Return(true, nil)
	env := setupDispatcher(t, &models.CommandDefinition{
		Name:       "ping",
		Predicates: []models.Predicate{checks.NotBlacklisted(store)},
		Handler:    countingHandler(&calls),
	})
	expectErrorResponse(env, "blacklisted")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!ping"))
	require.NoError(t, err)

	assert.Equal(t, models.ReasonBlacklisted, outcome.Reason)
	assert.Equal(t, int32(0), calls.Load())
	env.gateway.AssertExpectations(t)
	store.AssertExpectations(t)

	terminal := env.audit.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, "guild-1", terminal[0].Fields["guild_id"])
	assert.Equal(t, "Blacklisted", terminal[0].Fields["reason"])
}

func TestDispatch_CommandNotFound(t *testing.T) {
	var predicateCalls, handlerCalls atomic.Int32
	env := setupDispatcher(t, &models.CommandDefinition{
		Name:       "ping",
		Predicates: []models.Predicate{countingPredicate("counter", models.Allow(), &predicateCalls)},
		Handler:    countingHandler(&handlerCalls),
	})
	expectErrorResponse(env, "Unknown command `xyzzy`")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!xyzzy"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeCommandNotFound, outcome.Kind)
	assert.Equal(t, int32(0), predicateCalls.Load())
	assert.Equal(t, int32(0), handlerCalls.Load())
	assert.Equal(t, []models.Stage{models.StageReceived, models.StageResolving, models.StageFailed}, env.audit.Stages())
	env.gateway.AssertExpectations(t)
}

func TestDispatch_UnclassifiedHandlerErrorIsReturned(t *testing.T) {
	cause := errors.New("unexpected shape")
	env := setupDispatcher(t, &models.CommandDefinition{
		Name: "ping",
		Handler: func(ctx context.Context, inv models.Invocation, reply models.Replier) error {
			return cause
		},
	})

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!ping"))
	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.Equal(t, models.OutcomeHandlerFailed, outcome.Kind)
	assert.Empty(t, env.gateway.Calls)

	terminal := env.audit.Terminal()
	require.Len(t, terminal, 1)
	assert.Equal(t, models.AuditLevelError, terminal[0].Level)
	assert.Equal(t, "Unclassified", terminal[0].Fields["reason"])
}

func TestDispatch_HandlerErrorShowsGenericMessage(t *testing.T) {
	env := setupDispatcher(t, &models.CommandDefinition{
		Name: "ping",
		Handler: func(ctx context.Context, inv models.Invocation, reply models.Replier) error {
			return core.NewHandlerError("ping", errors.New("secret detail"))
		},
	})
	expectErrorResponse(env, "Something went wrong")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!ping"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeHandlerFailed, outcome.Kind)

	sent := env.gateway.Calls[0].Arguments.Get(2).(models.Response)
	assert.NotContains(t, sent.Embed.Description, "secret detail")
	assert.Len(t, env.audit.Terminal(), 1)
}

func TestDispatch_HandlerPanicIsRecovered(t *testing.T) {
	env := setupDispatcher(t, &models.CommandDefinition{
		Name: "ping",
		Handler: func(ctx context.Context, inv models.Invocation, reply models.Replier) error {
			var m map[string]int
			m["boom"]++
			return nil
		},
	})
	expectErrorResponse(env, "Something went wrong")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!ping"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeHandlerFailed, outcome.Kind)

	var panicErr *core.PanicError
	require.ErrorAs(t, outcome.Err, &panicErr)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestDispatch_PredicatesShortCircuit(t *testing.T) {
	var first, second, handlerCalls atomic.Int32
	env := setupDispatcher(t, &models.CommandDefinition{
		Name: "sync",
		Predicates: []models.Predicate{
			countingPredicate("first", models.Deny(models.ReasonNotOwner), &first),
			countingPredicate("second", models.Allow(), &second),
		},
		Handler: countingHandler(&handlerCalls),
	})
	env.gateway.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	for i := 0; i < 3; i++ {
		_, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!sync"))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), first.Load())
	assert.Equal(t, int32(0), second.Load())
	assert.Equal(t, int32(0), handlerCalls.Load())
}

func TestDispatch_PersistenceFailureInPredicate(t *testing.T) {
	var handlerCalls atomic.Int32
	store := &moderation.MockModerationService{}
	store.On("IsBlacklisted", mock.Anything, userID).Return(false, errors.New("database is locked"))
	env := setupDispatcher(t, &models.CommandDefinition{
		Name:       "ping",
		Predicates: []models.Predicate{checks.NotBlacklisted(store)},
		Handler:    countingHandler(&handlerCalls),
	})
	expectErrorResponse(env, "database is unavailable")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!ping"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeCheckFailed, outcome.Kind)
	assert.True(t, core.IsPersistenceUnavailable(outcome.Err))
	assert.Equal(t, int32(0), handlerCalls.Load())
	env.gateway.AssertExpectations(t)
}

func TestDispatch_Cooldown(t *testing.T) {
	var calls atomic.Int32
	env := setupDispatcher(t, &models.CommandDefinition{
		Name:     "warn",
		Handler:  countingHandler(&calls),
		Cooldown: models.CooldownPolicy{Window: 60 * time.Second, MaxInvocations: 1},
	})
	env.gateway.On("SendMessage", mock.Anything, "channel-1", models.TextResponse("pong")).Return(nil)
	expectErrorResponse(env, "Please slow down")

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!warn"))
	require.NoError(t, err)
	require.Equal(t, models.OutcomeSuccess, outcome.Kind)

	env.clock.Advance(20 * time.Second)
	outcome, err = env.dispatcher.Dispatch(context.Background(), message(userID, "!warn"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomePredicateDenied, outcome.Kind)
	assert.Equal(t, models.ReasonOnCooldown, outcome.Reason)
	assert.Greater(t, outcome.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, outcome.RetryAfter, 60*time.Second)
	assert.Equal(t, 40*time.Second, outcome.RetryAfter)
	assert.Equal(t, int32(1), calls.Load())

	// other users keep their own window
	outcome, err = env.dispatcher.Dispatch(context.Background(), message(ownerID, "!warn"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)

	env.clock.Advance(40 * time.Second)
	outcome, err = env.dispatcher.Dispatch(context.Background(), message(userID, "!warn"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
}

func TestDispatch_DeniedInvocationsDoNotConsumeCooldown(t *testing.T) {
	var calls atomic.Int32
	allow := atomic.Bool{}
	env := setupDispatcher(t, &models.CommandDefinition{
		Name: "warn",
		Predicates: []models.Predicate{{
			Name: "toggle",
			Check: func(ctx context.Context, inv models.Invocation) (models.PredicateResult, error) {
				if allow.Load() {
					return models.Allow(), nil
				}
				return models.Deny(models.ReasonNotOwner), nil
			},
		}},
		Handler:  countingHandler(&calls),
		Cooldown: models.CooldownPolicy{Window: time.Minute, MaxInvocations: 1},
	})
	env.gateway.On("SendMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	outcome, _ := env.dispatcher.Dispatch(context.Background(), message(userID, "!warn"))
	assert.Equal(t, models.ReasonNotOwner, outcome.Reason)

	allow.Store(true)
	outcome, _ = env.dispatcher.Dispatch(context.Background(), message(userID, "!warn"))
	assert.Equal(t, models.OutcomeSuccess, outcome.Kind)
}

func TestDispatch_MissingArgument(t *testing.T) {
	env := setupDispatcher(t, &models.CommandDefinition{
		Name: "warn",
		Handler: func(ctx context.Context, inv models.Invocation, reply models.Replier) error {
			if len(inv.Args) == 0 {
				return &core.MissingArgumentError{Param: "user"}
			}
			return nil
		},
	})
	env.gateway.On("SendMessage", mock.Anything, "channel-1", mock.MatchedBy(func(response models.Response) bool {
		return response.Embed != nil &&
			response.Embed.Title == "Error!" &&
			response.Embed.Description == "User is a required argument that is missing."
	})).Return(nil).Once()

	outcome, err := env.dispatcher.Dispatch(context.Background(), message(userID, "!warn"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeHandlerFailed, outcome.Kind)
	env.gateway.AssertExpectations(t)
}
