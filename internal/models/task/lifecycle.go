package task

import "time"

type LifecycleState string

const LifecycleActive LifecycleState = "active"
const LifecycleTrashed LifecycleState = "trashed"
const LifecyclePurged LifecycleState = "purged"

// Lifecycle - состояние жизненного цикла задачи: active, trashed(at) или purged.
// Флаг deleted и deleted_at в хранилище выводятся из него.
type Lifecycle struct {
	state     LifecycleState
	trashedAt *time.Time
}

func Active() Lifecycle {
	return Lifecycle{state: LifecycleActive}
}

func Trashed(at time.Time) Lifecycle {
	return Lifecycle{state: LifecycleTrashed, trashedAt: &at}
}

func Purged() Lifecycle {
	return Lifecycle{state: LifecyclePurged}
}

// LifecycleFromRow собирает состояние из пары deleted/deleted_at.
// deleted без deleted_at трактуется как удаление в момент создания строки.
func LifecycleFromRow(deleted bool, deletedAt *time.Time, fallback time.Time) Lifecycle {
	if !deleted {
		return Active()
	}
	if deletedAt == nil {
		return Trashed(fallback)
	}
	return Trashed(*deletedAt)
}

func (l Lifecycle) State() LifecycleState {
	if l.state == "" {
		return LifecycleActive
	}
	return l.state
}

func (l Lifecycle) Trashed() bool {
	return l.state == LifecycleTrashed
}

func (l Lifecycle) Purged() bool {
	return l.state == LifecyclePurged
}

func (l Lifecycle) TrashedAt() *time.Time {
	if l.state != LifecycleTrashed || l.trashedAt == nil {
		return nil
	}
	at := *l.trashedAt
	return &at
}

func (l Lifecycle) clone() Lifecycle {
	if l.trashedAt == nil {
		return l
	}
	at := *l.trashedAt
	return Lifecycle{state: l.state, trashedAt: &at}
}
