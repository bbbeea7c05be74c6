package notifications

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"vigil/internal/config"
	"vigil/internal/events"
	"vigil/internal/logging"
)

// Service defines the notification surface exposed to workflow components.
// Methods return the notification status to persist on the event alongside
// any delivery error; errors carry the best-effort marker and never fail
// the event itself.
type Service interface {
	NotifyEventCompleted(ctx context.Context, event *events.Event) (events.NotificationStatus, error)
	NotifyEventFailed(ctx context.Context, event *events.Event) (events.NotificationStatus, error)
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by shoutrrr when service
// URLs are configured. Without URLs a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	urls := cfg.Notifications.ServiceURLs
	if len(urls) == 0 {
		return noopService{}, nil
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, events.Wrap(events.ErrConfiguration, "notifications", "init", "create sender", err)
	}
	if timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second; timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &shoutrrrService{
		dispatch:    sender.Send,
		completions: cfg.Notifications.Completions,
		errors:      cfg.Notifications.Errors,
		cooldown:    cfg.AlertCooldown(),
		logger:      logging.NewComponentLogger(logger, "notifications"),
		now:         time.Now,
		lastAlert:   make(map[string]time.Time),
	}, nil
}

type shoutrrrService struct {
	dispatch    func(message string, params *stypes.Params) []error
	completions bool
	errors      bool
	cooldown    time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

func (s *shoutrrrService) NotifyEventCompleted(ctx context.Context, event *events.Event) (events.NotificationStatus, error) {
	if !s.completions {
		return events.NotifySkipped, nil
	}
	if s.onCooldown(event.CameraID) {
		s.logger.Info("completion alert suppressed by cooldown",
			logging.String(logging.FieldCamera, event.CameraID),
			logging.String(logging.FieldEventID, event.EventID))
		return events.NotifySkipped, nil
	}

	message := fmt.Sprintf("Presence event on %s: %s of footage uploaded",
		event.CameraID, humanize.Bytes(uint64(event.FinalBytes)))
	if event.RemoteURL != "" {
		message += "\n" + event.RemoteURL
	}
	return s.send(ctx, event, "Vigil - Event Recorded", message)
}

func (s *shoutrrrService) NotifyEventFailed(ctx context.Context, event *events.Event) (events.NotificationStatus, error) {
	if !s.errors {
		return events.NotifySkipped, nil
	}

	reason := strings.TrimSpace(event.ErrorMessage)
	if reason == "" {
		reason = "unknown"
	}
	message := fmt.Sprintf("Presence event on %s failed: %s", event.CameraID, reason)
	return s.send(ctx, event, "Vigil - Event Failed", message)
}

func (s *shoutrrrService) TestNotification(ctx context.Context) error {
	_, err := s.send(ctx, nil, "Vigil - Test", "Notification system test")
	return err
}

func (s *shoutrrrService) send(ctx context.Context, event *events.Event, title, message string) (events.NotificationStatus, error) {
	if err := ctx.Err(); err != nil {
		return events.NotifyFailed, events.Wrap(events.ErrBestEffort, "notifications", "send", title, err)
	}

	params := stypes.Params{}
	params.SetTitle(title)
	if err := firstError(s.dispatch(message, &params)); err != nil {
		if event != nil {
			s.logger.Warn("notification delivery failed",
				logging.String(logging.FieldEventID, event.EventID),
				logging.Error(err))
		}
		return events.NotifyFailed, events.Wrap(events.ErrBestEffort, "notifications", "send", title, err)
	}

	if event != nil {
		s.markAlert(event.CameraID)
	}
	return events.NotifyDelivered, nil
}

func (s *shoutrrrService) onCooldown(cameraID string) bool {
	if s.cooldown <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastAlert[cameraID]
	return ok && s.now().Sub(last) < s.cooldown
}

func (s *shoutrrrService) markAlert(cameraID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAlert[cameraID] = s.now()
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyEventCompleted(context.Context, *events.Event) (events.NotificationStatus, error) {
	return events.NotifySkipped, nil
}

func (noopService) NotifyEventFailed(context.Context, *events.Event) (events.NotificationStatus, error) {
	return events.NotifySkipped, nil
}

func (noopService) TestNotification(context.Context) error { return nil }
