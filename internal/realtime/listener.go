package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"taskflow/internal/logger"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const DefaultChannel = "task_changes"

// Listener слушает NOTIFY от триггеров таблицы tasks и публикует события в Hub
type Listener struct {
	pool       *pgxpool.Pool
	hub        *Hub
	channel    string
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewListener(pool *pgxpool.Pool, hub *Hub) *Listener {
	return &Listener{
		pool:       pool,
		hub:        hub,
		channel:    DefaultChannel,
		minBackoff: time.Second,
		maxBackoff: time.Second * 30,
	}
}

// Run держит подписку до отмены ctx, переподключаясь с экспоненциальной задержкой
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.minBackoff

	for {
		connected, err := l.listen(ctx)
		if ctx.Err() != nil {
			logger.Info("Realtime: Слушатель остановлен")
			return nil
		}
		if connected {
			backoff = l.minBackoff
		}

		logger.Warn("Realtime: Соединение LISTEN потеряно, переподключение",
			zap.Error(err),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			logger.Info("Realtime: Слушатель остановлен")
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context) (bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("получение соединения: %w", err)
	}
	defer func() {
		unlistenCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = conn.Exec(unlistenCtx, "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("подписка LISTEN: %w", err)
	}
	logger.Info("Realtime: Подписка на изменения задач", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("ожидание уведомления: %w", err)
		}

		e, err := ParseEvent(n.Payload)
		if err != nil {
			logger.Warn("Realtime: Некорректное уведомление", zap.Error(err), zap.String("payload", n.Payload))
			continue
		}
		l.hub.Publish(e)
	}
}

func ParseEvent(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("разбор события: %w", err)
	}
	switch e.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return Event{}, fmt.Errorf("неизвестная операция %q", e.Op)
	}
	return e, nil
}
