package service

import (
	"context"
	"sync"
	"time"

	"github.com/x402labs/x402gate/internal/model"
	"github.com/x402labs/x402gate/internal/pkg/logger"
	"github.com/x402labs/x402gate/internal/repository"
)

// ActivityService writes the wallet activity feed asynchronously so
// request latency never waits on the store.
type ActivityService struct {
	store   repository.ActivityStore
	entries chan *model.ActivityLog
	wg      sync.WaitGroup
	once    sync.Once
}

func NewActivityService(store repository.ActivityStore) *ActivityService {
	s := &ActivityService{
		store:   store,
		entries: make(chan *model.ActivityLog, 1024),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

// Log enqueues an entry; when the queue is full the entry is dropped
// rather than blocking the request path.
func (s *ActivityService) Log(entry *model.ActivityLog) {
	if entry == nil {
		return
	}
	select {
	case s.entries <- entry:
	default:
		logger.Warn("activity queue full, dropping entry", "path", entry.Path)
	}
}

func (s *ActivityService) worker() {
	defer s.wg.Done()
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.store.InsertActivity(ctx, entry); err != nil {
			logger.Error("failed to persist activity entry", "error", err)
		}
		cancel()
	}
}

// Close drains the queue and stops the worker.
func (s *ActivityService) Close() {
	s.once.Do(func() {
		close(s.entries)
		s.wg.Wait()
	})
}
