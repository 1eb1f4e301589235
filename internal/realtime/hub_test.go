package realtime_test

import (
	"sync"
	"taskflow/internal/realtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan realtime.Event) realtime.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "канал закрыт")
		return e
	case <-time.After(time.Second):
		t.Fatal("событие не пришло")
	}
	return realtime.Event{}
}

func TestHub_PublishToOwner(t *testing.T) {
	hub := realtime.NewHub(4)
	owner, stranger := uuid.New(), uuid.New()

	first, cancelFirst := hub.Subscribe(owner)
	second, cancelSecond := hub.Subscribe(owner)
	other, cancelOther := hub.Subscribe(stranger)
	defer cancelFirst()
	defer cancelSecond()
	defer cancelOther()

	assert.Equal(t, 2, hub.Subscribers(owner))

	e := realtime.Event{Op: realtime.OpInsert, TaskID: uuid.New(), UserID: owner}
	hub.Publish(e)

	assert.Equal(t, e, receive(t, first))
	assert.Equal(t, e, receive(t, second))
	select {
	case got := <-other:
		t.Fatalf("чужое событие доставлено: %+v", got)
	default:
	}
}

func TestHub_Cancel(t *testing.T) {
	hub := realtime.NewHub(0)
	userID := uuid.New()

	ch, cancel := hub.Subscribe(userID)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.Subscribers(userID))

	// публикация без подписчиков не падает
	hub.Publish(realtime.Event{Op: realtime.OpDelete, UserID: userID})
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := realtime.NewHub(2)
	userID := uuid.New()
	ch, cancel := hub.Subscribe(userID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(realtime.Event{Op: realtime.OpUpdate, UserID: userID, TaskID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish заблокировался на медленном подписчике")
	}
	assert.Len(t, ch, 2)
}

func TestHub_Close(t *testing.T) {
	hub := realtime.NewHub(1)
	userID := uuid.New()
	ch, cancel := hub.Subscribe(userID)

	hub.Close()
	hub.Close()
	_, open := <-ch
	assert.False(t, open)

	// отписка после закрытия хаба безопасна
	cancel()

	late, lateCancel := hub.Subscribe(userID)
	_, open = <-late
	assert.False(t, open)
	lateCancel()
}

func TestHub_Concurrent(t *testing.T) {
	hub := realtime.NewHub(64)
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel := hub.Subscribe(userID)
			hub.Publish(realtime.Event{Op: realtime.OpInsert, UserID: userID})
			cancel()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			hub.Publish(realtime.Event{Op: realtime.OpUpdate, UserID: userID})
		}()
	}
	wg.Wait()
	assert.Zero(t, hub.Subscribers(userID))
}

func TestParseEvent(t *testing.T) {
	taskID, userID := uuid.New(), uuid.New()
	payload := `{"op" : "update", "task_id" : "` + taskID.String() + `", "user_id" : "` + userID.String() +
		`", "at" : "2026-05-10T12:00:00.123456+00:00"}`

	e, err := realtime.ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, realtime.OpUpdate, e.Op)
	assert.Equal(t, taskID, e.TaskID)
	assert.Equal(t, userID, e.UserID)
	assert.Equal(t, 2026, e.At.Year())

	_, err = realtime.ParseEvent(`{"op":"truncate"}`)
	assert.Error(t, err)
	_, err = realtime.ParseEvent(`not json`)
	assert.Error(t, err)
}
