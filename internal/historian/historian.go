// internal/historian/historian.go is the asynchronous writer behind the move log: it pops
// move records from the queue, persists them in batches and maintains the profile
// read-model (aggregate stats and ratings) when a game finishes.
package historian

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/rating"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source yields batches of move records. cache.MoveQueue is the production source.
type Source interface {
	PopMoves(ctx context.Context, max int, timeout time.Duration) ([]models.MoveRecord, error)
}

// Requeuer puts records back at the head of the source. A Source that implements it
// gets undelivered batches back when the historian stops mid-retry.
type Requeuer interface {
	Requeue(ctx context.Context, recs []models.MoveRecord) error
}

// Invalidator drops cached read-model views after profiles change.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// maxSettled bounds the memory of finished games already folded into profiles.
const maxSettled = 10000

// Service drains a Source into the store.
type Service struct {
	src    Source
	store  store.Store
	cache  Invalidator
	logger *logrus.Logger

	BatchSize  int
	FlushDelay time.Duration
	PurgeEvery time.Duration
	// RetryBase is the first wait after a failed store write; it doubles up to RetryMax.
	RetryBase time.Duration
	RetryMax  time.Duration

	// settled remembers finished games so a redelivered final move is not counted twice.
	settled map[uuid.UUID]struct{}
	now     func() time.Time
}

// NewService wires a historian. cache may be nil.
func NewService(src Source, st store.Store, cache Invalidator, logger *logrus.Logger) *Service {
	return &Service{
		src:        src,
		store:      st,
		cache:      cache,
		logger:     logger,
		BatchSize:  100,
		FlushDelay: 500 * time.Millisecond,
		PurgeEvery: time.Hour,
		RetryBase:  time.Second,
		RetryMax:   30 * time.Second,
		settled:    make(map[uuid.UUID]struct{}),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes the queue and purges expired invite codes until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("historian service started")
	defer s.logger.Info("historian shutting down")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.consume(ctx) })
	g.Go(func() error { return s.purgeLoop(ctx) })
	return g.Wait()
}

func (s *Service) consume(ctx context.Context) error {
	for {
		recs, err := s.src.PopMoves(ctx, s.BatchSize, s.FlushDelay)
		if ctx.Err() != nil {
			s.requeue(recs)
			return nil
		}
		if err != nil {
			s.logger.Warnf("pop moves: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if len(recs) == 0 {
			continue
		}
		if err := s.Process(ctx, recs); err != nil && ctx.Err() == nil {
			s.logger.Errorf("flush %d moves: %v", len(recs), err)
		}
	}
}

// Process persists one batch and settles every game it finishes. Store failures are
// retried with backoff until they succeed or ctx ends; in the latter case the records
// not yet handled are handed back to the source when it is a Requeuer.
func (s *Service) Process(ctx context.Context, recs []models.MoveRecord) error {
	err := s.retry(ctx, "insert moves", func() error {
		return s.store.InsertMoveRecords(ctx, recs)
	})
	if err != nil {
		s.requeue(recs)
		return err
	}
	s.logger.Debugf("flushed %d moves", len(recs))

	changed := false
	defer func() {
		if changed && s.cache != nil {
			s.cache.Invalidate(ctx)
		}
	}()
	for i, rec := range recs {
		if !rec.Finishing() {
			continue
		}
		if _, done := s.settled[rec.GameID]; done {
			continue
		}
		err := s.retry(ctx, "settle game", func() error { return s.settle(ctx, rec) })
		if err != nil {
			s.requeue(unsettled(recs[i:]))
			return err
		}
		s.remember(rec.GameID)
		changed = true
	}
	return nil
}

// retry runs fn until it succeeds, waiting RetryBase doubled per attempt in between.
func (s *Service) retry(ctx context.Context, what string, fn func() error) error {
	wait := s.RetryBase
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait}).Warnf("%s: %v", what, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > s.RetryMax {
			wait = s.RetryMax
		}
	}
}

// requeue returns recs to the source. The historian's own context is already done, so
// the push gets a short detached deadline.
func (s *Service) requeue(recs []models.MoveRecord) {
	rq, ok := s.src.(Requeuer)
	if !ok || len(recs) == 0 {
		if len(recs) > 0 {
			s.logger.Errorf("dropping %d unsaved moves: source cannot requeue", len(recs))
		}
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rq.Requeue(ctx, recs); err != nil {
		s.logger.Errorf("requeue %d moves: %v", len(recs), err)
		return
	}
	s.logger.Infof("requeued %d moves", len(recs))
}

func unsettled(recs []models.MoveRecord) []models.MoveRecord {
	var out []models.MoveRecord
	for _, rec := range recs {
		if rec.Finishing() {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Service) settle(ctx context.Context, rec models.MoveRecord) error {
	humans := make([]uuid.UUID, 0, len(rec.Players))
	for _, id := range rec.Players {
		if id != models.AIPlayerID {
			humans = append(humans, id)
		}
	}
	if len(humans) == 0 {
		return nil
	}
	err := s.store.UpdateProfiles(ctx, humans, func(ps map[uuid.UUID]*models.Profile) error {
		rating.RecordResult(ps, rec.Players, rec.Winner)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"game": rec.GameID, "kind": rec.Kind}).Info("game settled")
	return nil
}

func (s *Service) remember(id uuid.UUID) {
	if len(s.settled) >= maxSettled {
		s.settled = make(map[uuid.UUID]struct{})
	}
	s.settled[id] = struct{}{}
}

func (s *Service) purgeLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.PurgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.store.PurgeExpiredInvites(ctx, s.now())
			if err != nil {
				s.logger.Warnf("purge invites: %v", err)
				continue
			}
			if n > 0 {
				s.logger.Infof("purged %d expired invite codes", n)
			}
		}
	}
}
