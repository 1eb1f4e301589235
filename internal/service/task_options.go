package service

import (
	"taskflow/internal/models/task"
	"taskflow/internal/realtime"
	"time"

	"github.com/google/uuid"
)

// Option настраивает сервисы: часы, часовой пояс и канал изменений
type Option func(*settings)

type settings struct {
	now        func() time.Time
	loc        *time.Location
	notifier   Notifier
	subscriber Subscriber
}

func newSettings(opts []Option) settings {
	s := settings{
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// WithLocation задаёт пояс, в котором считается "сегодня"
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		s.notifier = n
	}
}

func WithSubscriber(sub Subscriber) Option {
	return func(s *settings) {
		s.subscriber = sub
	}
}

func (s settings) current() time.Time {
	return s.now().In(s.loc)
}

func (s settings) today() task.Date {
	return task.DateOf(s.current())
}

func (s settings) notify(op realtime.Op, taskID, userID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(realtime.Event{
		Op:     op,
		TaskID: taskID,
		UserID: userID,
		At:     s.now(),
	})
}
