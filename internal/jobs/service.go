package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/history"
	"lorikeet/internal/scheme"

	"github.com/google/uuid"
)

const (
	EventProgress  = "scheme:progress"
	EventGenerated = "scheme:generated"
)

var ErrJobRunning = errors.New("scheme generation already in progress")

var ErrNoJobRunning = errors.New("no scheme generation in progress")

type Progress struct {
	JobID    string  `json:"jobId"`
	Phase    string  `json:"phase"`
	Message  string  `json:"message"`
	Accepted int     `json:"accepted"`
	Target   int     `json:"target"`
	Percent  int     `json:"percent"`
	Hex      string  `json:"hex,omitempty"`
	Alpha    float64 `json:"alpha,omitempty"`
	Status   string  `json:"status"`
	At       string  `json:"at"`
}

type Generated struct {
	JobID  string         `json:"jobId"`
	Scheme history.Scheme `json:"scheme"`
}

type Status struct {
	Running      bool   `json:"running"`
	JobID        string `json:"jobId,omitempty"`
	LastRunAt    string `json:"lastRunAt"`
	LastError    string `json:"lastError,omitempty"`
	LastSchemeID int64  `json:"lastSchemeId,omitempty"`
	LastAttempts int    `json:"lastAttempts"`
	LastDecays   int    `json:"lastDecays"`
}

type Emitter func(eventName string, payload any)

// Store persists finished schemes.
type Store interface {
	Save(ctx context.Context, entry history.Entry) (history.Scheme, error)
}

// Service runs one background generation at a time and reports progress
// through the emitter.
type Service struct {
	mu           sync.Mutex
	running      bool
	jobID        string
	jobCtx       context.Context
	cancel       context.CancelFunc
	lastRun      time.Time
	lastError    string
	lastSchemeID int64
	lastAttempts int
	lastDecays   int
	emit         Emitter
	store        Store
	logger       *slog.Logger
	done         chan struct{}
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) SetEmitter(emitter Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = emitter
}

// Start validates the request and launches it, returning the job ID.
func (s *Service) Start(request Request) (string, error) {
	if err := request.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", ErrJobRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	jobID := uuid.NewString()
	done := make(chan struct{})
	s.running = true
	s.jobID = jobID
	s.jobCtx = ctx
	s.cancel = cancel
	s.lastError = ""
	s.done = done
	s.mu.Unlock()

	go s.run(ctx, cancel, jobID, request, done)
	return jobID, nil
}

func (s *Service) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.cancel == nil {
		return ErrNoJobRunning
	}
	s.cancel()
	return nil
}

// Wait blocks until the current job, if any, has finished.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:      s.running,
		LastError:    s.lastError,
		LastSchemeID: s.lastSchemeID,
		LastAttempts: s.lastAttempts,
		LastDecays:   s.lastDecays,
	}
	if s.running {
		status.JobID = s.jobID
	}
	if !s.lastRun.IsZero() {
		status.LastRunAt = s.lastRun.UTC().Format(time.RFC3339)
	}

	return status
}

func (s *Service) run(ctx context.Context, cancel context.CancelFunc, jobID string, request Request, done chan struct{}) {
	defer close(done)
	defer cancel()

	s.emitProgress(Progress{
		JobID:    jobID,
		Phase:    "start",
		Message:  "Starting scheme generation",
		Accepted: 0,
		Target:   request.Count,
		Percent:  0,
		Status:   "running",
		At:       time.Now().UTC().Format(time.RFC3339),
	})

	onAccept := func(index int, target int, accepted colorspace.Color) {
		s.emitProgress(Progress{
			JobID:    jobID,
			Phase:    "accepted",
			Message:  fmt.Sprintf("Accepted color %d of %d", index, target),
			Accepted: index,
			Target:   target,
			Percent:  percentOf(index, target),
			Hex:      accepted.Hex(),
			Alpha:    accepted.Alpha(),
			Status:   "running",
			At:       time.Now().UTC().Format(time.RFC3339),
		})
	}

	result, err := Execute(ctx, request, s.logger.With("job", jobID), onAccept)

	var saved history.Scheme
	if err == nil && len(result.Colors) > 0 && s.store != nil {
		saved, err = s.store.Save(context.Background(), history.Entry{
			Algorithm:   request.Algorithm,
			Strategy:    request.Sampler,
			Options:     request.Options,
			TargetCount: request.Count,
			Result:      result,
		})
		if err != nil {
			err = fmt.Errorf("save scheme: %w", err)
		}
	}

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.lastRun = time.Now().UTC()
	s.lastAttempts = result.Stats.Attempts
	s.lastDecays = result.Stats.Decays
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.lastSchemeID = saved.ID
	}
	s.mu.Unlock()

	if err != nil {
		status := "failed"
		if errors.Is(err, context.Canceled) {
			status = "cancelled"
		}
		s.emitProgress(Progress{
			JobID:    jobID,
			Phase:    status,
			Message:  err.Error(),
			Accepted: generatedCount(result),
			Target:   request.Count,
			Percent:  100,
			Status:   status,
			At:       time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	s.emitProgress(Progress{
		JobID: jobID,
		Phase: "done",
		Message: fmt.Sprintf(
			"Scheme complete: %d colors, %d attempts, %d decays",
			len(result.Colors),
			result.Stats.Attempts,
			result.Stats.Decays,
		),
		Accepted: generatedCount(result),
		Target:   request.Count,
		Percent:  100,
		Status:   "completed",
		At:       time.Now().UTC().Format(time.RFC3339),
	})
	s.emitEvent(EventGenerated, Generated{JobID: jobID, Scheme: saved})
}

func (s *Service) emitProgress(progress Progress) {
	s.emitEvent(EventProgress, progress)
}

func (s *Service) emitEvent(name string, payload any) {
	s.mu.Lock()
	emitter := s.emit
	s.mu.Unlock()

	if emitter != nil {
		emitter(name, payload)
	}
}

// generatedCount excludes the seed.
func generatedCount(result scheme.Result) int {
	return max(len(result.Colors)-1, 0)
}

func percentOf(done int, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
