package worker

import (
	"context"
	"fmt"
	"taskflow/internal/logger"
	"time"

	"go.uber.org/zap"
)

// Purger - часть хранилища, которая умеет окончательно удалять старые задачи из корзины
type Purger interface {
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// TrashWorker периодически чистит корзину от задач старше retention
type TrashWorker struct {
	repo      Purger
	interval  time.Duration
	retention time.Duration
	batchSize int
	now       func() time.Time
}

func NewTrashWorker(repo Purger, retention time.Duration, interval *time.Duration, batchSize *int) *TrashWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = time.Hour
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil || *batchSize <= 0 {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}
	return &TrashWorker{
		repo:      repo,
		interval:  intervalToSet,
		retention: retention,
		batchSize: batchToSet,
		now:       time.Now,
	}
}

// Enabled: нулевой срок хранения отключает очистку
func (w *TrashWorker) Enabled() bool {
	return w.retention > 0 && w.repo != nil
}

func (w *TrashWorker) Start(ctx context.Context) {
	if !w.Enabled() {
		logger.Info("Worker: Очистка корзины отключена")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая очистка корзины", zap.Time("started_at", w.now()))
			if _, err := w.Purge(ctx); err != nil {
				logger.Warn("Worker: Ошибка очистки корзины", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Info("Worker: Фоновая очистка останавливается")
			return
		}
	}
}

// Purge удаляет пачками, пока есть что удалять
func (w *TrashWorker) Purge(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := w.now().Add(-w.retention)

	total := 0
	for {
		purged, err := w.repo.PurgeTrashedBefore(ctx, cutoff, w.batchSize)
		if err != nil {
			return total, fmt.Errorf("очистка корзины: %w", err)
		}
		total += purged
		if purged < w.batchSize || ctx.Err() != nil {
			break
		}
	}

	logger.Info(
		"Worker: Завершение очистки корзины",
		zap.Duration("ms", time.Since(start)),
		zap.Time("cutoff", cutoff),
		zap.Int("purged", total),
	)
	return total, nil
}
