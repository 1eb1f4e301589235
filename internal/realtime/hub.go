package realtime

import (
	"sync"
	"taskflow/internal/logger"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Op string

const OpInsert Op = "insert"
const OpUpdate Op = "update"
const OpDelete Op = "delete"

// Event - изменение одной задачи пользователя
type Event struct {
	Op     Op        `json:"op"`
	TaskID uuid.UUID `json:"task_id"`
	UserID uuid.UUID `json:"user_id"`
	At     time.Time `json:"at"`
}

// Hub раздаёт события подписчикам конкретного пользователя.
// Publish никогда не блокируется: медленный подписчик теряет события.
type Hub struct {
	mtx    sync.RWMutex
	subs   map[uuid.UUID]map[int]chan Event
	nextID int
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe возвращает канал событий пользователя и функцию отписки.
// Отписка закрывает канал, повторный вызов безопасен.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]chan Event)
	}
	h.subs[userID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mtx.Lock()
			defer h.mtx.Unlock()

			userSubs, ok := h.subs[userID]
			if !ok {
				return
			}
			if sub, ok := userSubs[id]; ok {
				delete(userSubs, id)
				close(sub)
			}
			if len(userSubs) == 0 {
				delete(h.subs, userID)
			}
		})
	}
	return ch, cancel
}

func (h *Hub) Publish(e Event) {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	for _, ch := range h.subs[e.UserID] {
		select {
		case ch <- e:
		default:
			logger.Warn("Realtime: Подписчик не успевает, событие отброшено",
				zap.String("user_id", e.UserID.String()),
				zap.String("task_id", e.TaskID.String()))
		}
	}
}

func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.subs[userID])
}

// Close закрывает все подписки, новые подписчики сразу получают закрытый канал
func (h *Hub) Close() {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for userID, userSubs := range h.subs {
		for _, ch := range userSubs {
			close(ch)
		}
		delete(h.subs, userID)
	}
	logger.Info("Realtime: Все подписки закрыты")
}
