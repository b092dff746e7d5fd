package middleware

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services/scheduler"
)

// DispatchFunc is the signature of the dispatcher entry point
type DispatchFunc func(ctx context.Context, msg models.InboundMessage) (models.DispatchOutcome, error)

type SlackAlertConfig struct {
	WebhookURL  string
	Environment string
	AppName     string
	LogsURL     string
}

type ErrorAlertMiddleware struct {
	config        SlackAlertConfig
	alertedErrors map[string]time.Time // hash -> last alert time
	mutex         sync.Mutex
	alertCooldown time.Duration
	httpClient    *http.Client
	now           func() time.Time
	onFatal       func(err error)
	inflight      sync.WaitGroup
}

func NewErrorAlertMiddleware(config SlackAlertConfig) *ErrorAlertMiddleware {
	return &ErrorAlertMiddleware{
		config:        config,
		alertedErrors: make(map[string]time.Time),
		alertCooldown: 10 * time.Minute, // Don't alert same error more than once per 10min
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

// WithFatalHandler registers a callback invoked after an unclassified dispatch
// error has been alerted, e.g. to shut the process down
func (m *ErrorAlertMiddleware) WithFatalHandler(onFatal func(err error)) *ErrorAlertMiddleware {
	m.onFatal = onFatal
	return m
}

func (m *ErrorAlertMiddleware) WithClock(now func() time.Time) *ErrorAlertMiddleware {
	m.now = now
	return m
}

func (m *ErrorAlertMiddleware) WithHTTPClient(client *http.Client) *ErrorAlertMiddleware {
	m.httpClient = client
	return m
}

// Wait blocks until every alert sent so far has been delivered or failed
func (m *ErrorAlertMiddleware) Wait() {
	m.inflight.Wait()
}

// HTTP Middleware - wraps HTTP handlers
func (m *ErrorAlertMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.alertOnPanic(rec, fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// WrapDispatch alerts on errors the classifier could not recognize and on
// panics escaping the dispatcher. The wrapped dispatcher's results are passed
// through unchanged.
func (m *ErrorAlertMiddleware) WrapDispatch(dispatch DispatchFunc) DispatchFunc {
	return func(ctx context.Context, msg models.InboundMessage) (outcome models.DispatchOutcome, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("dispatch panicked: %v", rec)
				m.alertOnPanic(rec, fmt.Sprintf("Dispatch of message %s in channel %s", msg.MessageID, msg.ChannelID))
				m.fatal(err)
			}
		}()

		outcome, err = dispatch(ctx, msg)
		if err != nil {
			log.Error("❌ Unclassified error while dispatching command",
				"command", outcome.Command,
				"message_id", msg.MessageID,
				"error", err)
			m.alertOnError(err, fmt.Sprintf("Command %s in channel %s", outcome.Command, msg.ChannelID))
			m.fatal(err)
		}
		return outcome, err
	}
}

// WrapBackgroundTask recovers panics of periodic jobs and alerts on failures.
// It matches scheduler.TaskWrapper.
func (m *ErrorAlertMiddleware) WrapBackgroundTask(taskName string, task scheduler.JobFunc) scheduler.JobFunc {
	return func(ctx context.Context) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("background task %s panicked: %v", taskName, rec)
				m.alertOnPanic(rec, fmt.Sprintf("Background task: %s", taskName))
			}
		}()

		if err := task(ctx); err != nil {
			m.alertOnError(err, fmt.Sprintf("Background task: %s", taskName))
			return err
		}
		return nil
	}
}

func (m *ErrorAlertMiddleware) fatal(err error) {
	if m.onFatal != nil {
		m.onFatal(err)
	}
}

// Core error alerting logic
func (m *ErrorAlertMiddleware) alertOnError(err error, origin string) {
	errorMsg := fmt.Sprintf("%s: %v", origin, err)

	// Create hash of error for deduplication
	hash := fmt.Sprintf("%x", md5.Sum([]byte(errorMsg)))

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	if lastAlert, exists := m.alertedErrors[hash]; exists && now.Sub(lastAlert) < m.alertCooldown {
		return
	}
	m.alertedErrors[hash] = now

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.sendSlackAlert(errorMsg, origin)
	}()
}

func (m *ErrorAlertMiddleware) alertOnPanic(rec any, origin string) {
	errorMsg := fmt.Sprintf("%s: PANIC - %v", origin, rec)
	log.Error("❌ Recovered from panic", "context", origin, "panic", rec, "stack", string(debug.Stack()))

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.sendSlackAlert(errorMsg, origin+" (PANIC)")
	}()
}

func (m *ErrorAlertMiddleware) buildAlert(errorMsg, origin string) *slack.WebhookMessage {
	envPrefix := ""
	if m.config.Environment == "dev" {
		envPrefix = "[dev] "
	}

	header := slack.NewHeaderBlock(slack.NewTextBlockObject(
		slack.PlainTextType,
		fmt.Sprintf("🚨 %s[%s] Error Alert", envPrefix, m.config.AppName),
		true,
		false,
	))
	details := slack.NewSectionBlock(nil, []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Service:* %s", m.config.AppName), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Environment:* %s", m.config.Environment), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Context:* %s", origin), false, false),
	}, nil)
	body := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Error:*\n```%s```", errorMsg), false, false),
		nil,
		nil,
	)

	blocks := []slack.Block{header, details, body}
	if m.config.LogsURL != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("🔗 <%s|View Logs>", m.config.LogsURL), false, false),
			nil,
			nil,
		))
	}

	return &slack.WebhookMessage{
		Text:   errorMsg,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func (m *ErrorAlertMiddleware) sendSlackAlert(errorMsg, origin string) {
	if m.config.WebhookURL == "" {
		return // Slack alerts disabled
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := slack.PostWebhookCustomHTTPContext(ctx, m.config.WebhookURL, m.httpClient, m.buildAlert(errorMsg, origin)); err != nil {
		log.Error("❌ Failed to send Slack alert", "error", err)
	}
}
