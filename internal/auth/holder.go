package auth

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

type EventKind string

const SignedIn EventKind = "signed_in"
const SignedOut EventKind = "signed_out"
const TokenRefreshed EventKind = "token_refreshed"

type Event struct {
	Kind    EventKind
	Session *Session
}

// Holder - текущая сессия клиента с подпиской на её смену.
// Создаётся явно и передаётся потребителям.
type Holder struct {
	mtx     sync.RWMutex
	session *Session
	subs    map[int]func(Event)
	nextID  int
}

func NewHolder() *Holder {
	return &Holder{subs: make(map[int]func(Event))}
}

func (h *Holder) Current() *Session {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if h.session == nil {
		return nil
	}
	c := *h.session
	return &c
}

func (h *Holder) UserID() (uuid.UUID, bool) {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if h.session == nil {
		return uuid.Nil, false
	}
	return h.session.User.ID, true
}

// Set сохраняет сессию: тот же пользователь - TokenRefreshed, иначе SignedIn
func (h *Holder) Set(s *Session) {
	if s == nil {
		h.Clear()
		return
	}

	h.mtx.Lock()
	kind := SignedIn
	if h.session != nil && h.session.User.ID == s.User.ID {
		kind = TokenRefreshed
	}
	c := *s
	h.session = &c
	subs := h.snapshot()
	h.mtx.Unlock()

	notify(subs, Event{Kind: kind, Session: &c})
}

func (h *Holder) Clear() {
	h.mtx.Lock()
	if h.session == nil {
		h.mtx.Unlock()
		return
	}
	h.session = nil
	subs := h.snapshot()
	h.mtx.Unlock()

	notify(subs, Event{Kind: SignedOut})
}

// Subscribe регистрирует обработчик смены сессии и возвращает отписку.
// Обработчики вызываются синхронно, в порядке подписки, вне блокировки.
func (h *Holder) Subscribe(fn func(Event)) func() {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	return func() {
		h.mtx.Lock()
		defer h.mtx.Unlock()
		delete(h.subs, id)
	}
}

func (h *Holder) snapshot() []func(Event) {
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, h.subs[id])
	}
	return subs
}

func notify(subs []func(Event), e Event) {
	for _, fn := range subs {
		fn(e)
	}
}
