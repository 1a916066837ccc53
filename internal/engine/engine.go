// Package engine implements the polling conversation sync loop: fetch
// the canonical message list, reconcile it against the last known view,
// and alert the user at most once per cycle for newly arrived
// counterpart messages.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ewhitmore/clinic-chat/internal/api"
	"github.com/ewhitmore/clinic-chat/internal/chat"
	errs "github.com/ewhitmore/clinic-chat/internal/errors"
	"github.com/ewhitmore/clinic-chat/internal/state"
)

// DefaultInterval is the timer cadence between polls while the
// conversation is active.
const DefaultInterval = 2500 * time.Millisecond

// forcedResyncEvery paces out-of-band polls (send and upload triggered)
// so a burst of sends cannot hammer the server between timer ticks.
const forcedResyncEvery = 500 * time.Millisecond

// State is the session's position in the poll state machine.
type State int

const (
	// StateIdle means no poll has run yet.
	StateIdle State = iota

	// StatePolling means a fetch is outstanding.
	StatePolling

	// StateSettled means the last cycle finished; the view matches the
	// most recent successful fetch.
	StateSettled

	// StateLocked means the server answered 403: chat access is
	// pending approval. The existing view is kept.
	StateLocked

	// StateUnauthorized means the server answered 401: the session
	// token is no longer valid. The existing view is kept.
	StateUnauthorized
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateSettled:
		return "settled"
	case StateLocked:
		return "locked"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "idle"
	}
}

// Conversations is the API surface the engine needs. *api.Client
// satisfies it.
type Conversations interface {
	FetchMessages(ctx context.Context, convID string) ([]chat.Message, error)
	SendText(ctx context.Context, convID, text string) error
}

// Alerter notifies the user of new counterpart messages.
// platform.Delivery satisfies it.
type Alerter interface {
	Alert()
}

// CursorStore persists the per-conversation sync cursor. *state.Store
// satisfies it. A nil store disables persistence.
type CursorStore interface {
	GetCursor(convID string) (state.Cursor, error)
	SetCursor(convID string, c state.Cursor) error
}

// Config holds the parameters for one conversation session.
type Config struct {
	ConversationID string
	API            Conversations
	Alerter        Alerter
	Store          CursorStore
	Interval       time.Duration

	// OnUpdate, when set, receives a snapshot of the full message list
	// after every replacement.
	OnUpdate func(msgs []chat.Message)
}

// Session is the per-conversation sync state. Create one on entering a
// conversation and discard it on leaving; nothing in it is shared
// across conversations.
type Session struct {
	convID   string
	api      Conversations
	alerter  Alerter
	store    CursorStore
	logger   *slog.Logger
	interval time.Duration
	onUpdate func(msgs []chat.Message)

	// forced paces out-of-band resyncs.
	forced *rate.Limiter

	// pollMu serializes whole poll cycles: a timer poll and a forced
	// resync never interleave, so an old slow response can never
	// overwrite a newer fast one.
	pollMu sync.Mutex

	// mu guards the fields below. Held only for the decide-and-replace
	// step, never across a fetch.
	mu        sync.Mutex
	state     State
	messages  []chat.Message
	lastCount int

	// suppressAlert is the notification gate: set before a self
	// initiated send is posted, cleared after the resync that send
	// triggers has been evaluated. Consulted only by the alert
	// decision, never by the data replacement step.
	suppressAlert bool

	// lastAlertID is the highest counterpart message id an alert has
	// fired for. Persisted so the position survives restarts.
	lastAlertID int64
}

// NewSession creates a session for one conversation, restoring the
// alert cursor from the store when one is configured.
func NewSession(cfg Config, logger *slog.Logger) *Session {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	s := &Session{
		convID:   cfg.ConversationID,
		api:      cfg.API,
		alerter:  cfg.Alerter,
		store:    cfg.Store,
		logger:   logger,
		interval: interval,
		onUpdate: cfg.OnUpdate,
		forced:   rate.NewLimiter(rate.Every(forcedResyncEvery), 1),
		state:    StateIdle,
	}

	if s.store != nil {
		cursor, err := s.store.GetCursor(s.convID)
		if err != nil {
			logger.Warn("reading sync cursor", slog.String("conversation", s.convID), slog.Any("error", err))
		} else {
			s.lastAlertID = cursor.LastAlertID
		}
	}

	return s
}

// Run polls on the configured interval until ctx is cancelled. The
// timer is armed only after the previous cycle settles, so polls are
// strictly sequential.
func (s *Session) Run(ctx context.Context) error {
	for {
		s.Poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

// Poll runs one fetch-and-reconcile cycle. Failures are swallowed here:
// a transient poll failure self-heals on the next tick and must never
// interrupt the user. A 401/403 transitions the state without clearing
// the existing view and without surfacing an error.
func (s *Session) Poll(ctx context.Context) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	s.setState(StatePolling)

	msgs, err := s.api.FetchMessages(ctx, s.convID)
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			switch se.Category() {
			case errs.CategorySession:
				s.setState(StateUnauthorized)
			case errs.CategoryAccessPending:
				s.setState(StateLocked)
			default:
				s.setState(StateSettled)
			}

			s.logger.Debug("poll rejected",
				slog.String("conversation", s.convID),
				slog.Int("status", se.Status),
				slog.String("code", se.Code),
			)

			return
		}

		s.setState(StateSettled)
		s.logger.Warn("poll failed", slog.String("conversation", s.convID), slog.Any("error", err))

		return
	}

	s.reconcile(msgs)
}

// reconcile applies the server list as the new truth and decides
// whether to alert. The decision uses a snapshot of the previous view;
// replacement is a single assignment, so a reader never observes a
// half-updated list.
func (s *Session) reconcile(msgs []chat.Message) {
	s.mu.Lock()

	prevCount := s.lastCount
	known := make(map[int64]struct{}, len(s.messages))
	for _, m := range s.messages {
		known[m.ID] = struct{}{}
	}

	hasNew := false

	var alertID int64

	if len(msgs) > prevCount && prevCount > 0 {
		for _, m := range msgs {
			if _, seen := known[m.ID]; seen {
				continue
			}

			if m.Sender != chat.SenderCounterparty {
				continue
			}

			hasNew = true
			if m.ID > alertID {
				alertID = m.ID
			}
		}
	}

	fire := hasNew && !s.suppressAlert
	if fire {
		s.lastAlertID = alertID
	} else if prevCount == 0 {
		// First load is always silent; record the cursor so the
		// restart position is visible in the state store.
		for _, m := range msgs {
			if m.Sender == chat.SenderCounterparty && m.ID > s.lastAlertID {
				s.lastAlertID = m.ID
			}
		}
	}

	s.messages = msgs
	s.lastCount = len(msgs)
	s.state = StateSettled
	cursor := state.Cursor{LastCount: s.lastCount, LastAlertID: s.lastAlertID}
	s.mu.Unlock()

	// One alert per cycle, however many messages arrived in the batch.
	if fire {
		s.alerter.Alert()
	}

	if s.store != nil {
		if err := s.store.SetCursor(s.convID, cursor); err != nil {
			s.logger.Warn("persisting sync cursor", slog.String("conversation", s.convID), slog.Any("error", err))
		}
	}

	if s.onUpdate != nil {
		s.onUpdate(s.Messages())
	}
}

// ForcePoll runs an immediate out-of-band cycle, paced by the forced
// resync limiter. Used after a send or upload so the new message
// appears without waiting for the next tick.
func (s *Session) ForcePoll(ctx context.Context) error {
	if err := s.forced.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for resync slot: %w", err)
	}

	s.Poll(ctx)

	return nil
}

// SendText posts a text message, then resyncs immediately so the sender
// sees their own message. The notification gate is set before the post
// and cleared once the triggered resync has been evaluated, success or
// failure.
func (s *Session) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	s.suppressAlert = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.suppressAlert = false
		s.mu.Unlock()
	}()

	if err := s.api.SendText(ctx, s.convID, text); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	return s.ForcePoll(ctx)
}

// Messages returns a snapshot of the current view in server order.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)

	return out
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// LastAlertID returns the highest counterpart message id that has been
// alerted for.
func (s *Session) LastAlertID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastAlertID
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
