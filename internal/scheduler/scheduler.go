package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/logger"
	"github.com/x402labs/x402gate/internal/repository"
	"github.com/x402labs/x402gate/internal/settlement"
)

// Scheduler sweeps for due recurring orders and replays them. Each run
// clones the recurring order into a one-shot child, settles the child,
// and advances the parent's next run time. The parent itself never
// leaves its terminal status.
type Scheduler struct {
	cron  *cron.Cron
	store repository.Store
	exec  *settlement.Executor
}

func New(spec string, store repository.Store, exec *settlement.Executor) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		store: store,
		exec:  exec,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	due, err := s.store.ListDueRecurring(ctx, now)
	if err != nil {
		logger.Error("recurring sweep failed", "error", err)
		return
	}

	for _, parent := range due {
		if err := s.runOnce(ctx, parent, now); err != nil {
			logger.Error("recurring execution failed", "order_id", parent.ID, "error", err)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, parent *model.Order, now time.Time) error {
	// advance the schedule first so a failing child does not retry on
	// every sweep
	next := now.Add(parent.ExecutionType.Interval())
	if err := s.store.SetNextRun(ctx, parent.ID, &next); err != nil {
		return err
	}

	child := *parent
	child.ID = uuid.New().String()
	child.ParentID = parent.ID
	child.ExecutionType = model.ExecutionOnce
	child.Status = model.OrderStatusPending
	child.NextRunAt = nil
	child.CreatedAt = now
	child.UpdatedAt = now

	if err := s.store.CreateOrder(ctx, &child); err != nil {
		return err
	}

	if _, err := s.exec.Execute(ctx, child.ID); err != nil {
		return err
	}
	logger.WithOrder(child.ID).Info("recurring order settled", "parent_id", parent.ID, "next_run", next)
	return nil
}
