package chat

import (
	"context"
	"time"

	"github.com/suPer8Hu/ai-chatbot/internal/ai"
	"github.com/suPer8Hu/ai-chatbot/internal/audit"
	"github.com/suPer8Hu/ai-chatbot/internal/observability"
)

type Service struct {
	store    *Store
	provider ai.Provider
	recorder audit.Recorder

	providerName string
	model        string

	now func() time.Time
}

type ServiceOption func(*Service)

func WithRecorder(r audit.Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithProviderInfo labels audit records.
func WithProviderInfo(name, model string) ServiceOption {
	return func(s *Service) {
		s.providerName = name
		s.model = model
	}
}

func NewService(store *Store, provider ai.Provider, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		provider:     provider,
		recorder:     audit.NopRecorder{},
		providerName: "unknown",
		model:        "unknown",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() *Store { return s.store }

type SendResult struct {
	SessionID uint64
	User      Message
	Reply     Message
	// Failed is set when Reply is the fallback text.
	Failed bool
	// Dropped is set when the origin session was deleted before the reply
	// arrived; Reply is then empty.
	Dropped bool
}

// Send runs one exchange: append the user message, ask the provider with the
// whole history, append the reply or the fallback. Only store rejections are
// returned as errors; a failed completion is absorbed into the fallback.
func (s *Service) Send(ctx context.Context, text string) (*SendResult, error) {
	log := observability.LoggerFromContext(ctx)

	sessionID, history, err := s.store.AppendUserMessage(text)
	if err != nil {
		log.Info("send rejected", "error", err)
		return nil, err
	}
	log = log.With("session_id", sessionID, "history_len", len(history))
	log.Info("send accepted")

	closed := false
	defer func() {
		// a panicking provider must not leave the store stuck in sending
		if !closed {
			s.store.AppendFallbackMessage()
		}
	}()

	// the exchange ends only on completion or failure, never on caller cancel
	callCtx := context.WithoutCancel(ctx)

	start := s.now()
	reply, chatErr := s.provider.Chat(callCtx, ToProviderMessages(history))
	latency := s.now().Sub(start)

	var (
		msg Message
		ok  bool
	)
	if chatErr != nil {
		log.Warn("completion failed", "error", chatErr, "latency_ms", latency.Milliseconds())
		msg, ok = s.store.AppendFallbackMessage()
	} else {
		log.Info("completion succeeded", "latency_ms", latency.Milliseconds())
		msg, ok = s.store.AppendAssistantMessage(reply)
	}
	closed = true
	if !ok {
		log.Warn("session deleted while sending; reply dropped")
	}

	s.record(callCtx, sessionID, latency, chatErr)

	return &SendResult{
		SessionID: sessionID,
		User:      history[len(history)-1],
		Reply:     msg,
		Failed:    chatErr != nil,
		Dropped:   !ok,
	}, nil
}

func (s *Service) record(ctx context.Context, sessionID uint64, latency time.Duration, chatErr error) {
	rec := &audit.Record{
		SessionID: sessionID,
		Provider:  s.providerName,
		Model:     s.model,
		Status:    audit.StatusSucceeded,
		LatencyMS: latency.Milliseconds(),
		CreatedAt: s.now(),
	}
	if chatErr != nil {
		cause := chatErr.Error()
		rec.Status = audit.StatusFailed
		rec.Error = &cause
	}
	if err := s.recorder.Save(ctx, rec); err != nil {
		observability.LoggerFromContext(ctx).Warn("audit save failed", "session_id", sessionID, "error", err)
	}
}

func (s *Service) CreateSession(ctx context.Context) Session {
	sess := s.store.CreateSession()
	observability.LoggerFromContext(ctx).Info("session created", "session_id", sess.ID)
	return sess
}

func (s *Service) DeleteSession(ctx context.Context, id uint64) {
	s.store.DeleteSession(id)
	active, ok := s.store.Active()
	observability.LoggerFromContext(ctx).Info("session deleted",
		"session_id", id, "active_id", active.ID, "has_active", ok)
}

func (s *Service) SelectSession(ctx context.Context, id uint64) error {
	if err := s.store.SelectSession(id); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info("session selected", "session_id", id)
	return nil
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// RecentCompletions exposes the audit trail. limit defaults to 20 and is
// capped at 100.
func (s *Service) RecentCompletions(ctx context.Context, limit int) ([]audit.Record, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	return s.recorder.Recent(ctx, limit)
}
