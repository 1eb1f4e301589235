package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Storage struct {
	pool *pgxpool.Pool
}

// PoolConfig - параметры пула; нулевые значения заменяются значениями по умолчанию
type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 && poolCfg.MinConns <= config.MaxConns {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = poolCfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

// Pool нужен слушателю LISTEN/NOTIFY: ему требуется выделенное соединение
func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

// задача вместе с подзадачами и тегами одним запросом
const selectTask = `SELECT
		t.id,
		t.user_id,
		t.title,
		t.description,
		t.status,
		t.priority,
		to_char(t.due_date, 'YYYY-MM-DD'),
		to_char(t.due_time, 'HH24:MI'),
		t.completed_at,
		t.deleted,
		t.deleted_at,
		t.created_at,
		t.updated_at,
		t.version,
		COALESCE((
			SELECT json_agg(json_build_object(
				'id', s.id,
				'task_id', s.task_id,
				'title', s.title,
				'completed', s.completed,
				'order_index', s.order_index,
				'created_at', s.created_at
			) ORDER BY s.order_index, s.created_at)
			FROM subtasks s
			WHERE s.task_id = t.id
		), '[]'::json),
		COALESCE((
			SELECT json_agg(json_build_object(
				'id', g.id,
				'user_id', g.user_id,
				'name', g.name,
				'color', g.color,
				'created_at', g.created_at
			) ORDER BY LOWER(g.name))
			FROM task_tags tt
			JOIN tags g ON g.id = tt.tag_id
			WHERE tt.task_id = t.id
		), '[]'::json)
	FROM tasks t`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	var (
		dueDate, dueTime     *string
		deleted              bool
		deletedAt            *time.Time
		subtasksRaw, tagsRaw []byte
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&dueDate,
		&dueTime,
		&t.CompletedAt,
		&deleted,
		&deletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
		&subtasksRaw,
		&tagsRaw,
	)
	if err != nil {
		return nil, err
	}

	if dueDate != nil {
		d, err := task.ParseDate(*dueDate)
		if err != nil {
			return nil, err
		}
		t.DueDate = &d
	}
	if dueTime != nil {
		at, err := task.ParseTimeOfDay(*dueTime)
		if err != nil {
			return nil, err
		}
		t.DueTime = &at
	}
	t.Lifecycle = task.LifecycleFromRow(deleted, deletedAt, t.UpdatedAt)

	t.Subtasks = []task.Subtask{}
	if err := json.Unmarshal(subtasksRaw, &t.Subtasks); err != nil {
		return nil, fmt.Errorf("разбор подзадач: %w", err)
	}
	t.Tags = []task.Tag{}
	if err := json.Unmarshal(tagsRaw, &t.Tags); err != nil {
		return nil, fmt.Errorf("разбор тегов: %w", err)
	}
	return t, nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	if taskToCreate.Lifecycle.State() != task.LifecycleTrashed {
		taskToCreate.Lifecycle = task.Active()
	}

	query := `INSERT INTO tasks
				(id, user_id, title, description, status, priority,
				 due_date, due_time, completed_at, deleted, deleted_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8::time, $9, $10, $11)
				RETURNING created_at, updated_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.UserID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Status,
		taskToCreate.Priority,
		dateParam(taskToCreate.DueDate),
		timeParam(taskToCreate.DueTime),
		taskToCreate.CompletedAt,
		taskToCreate.Deleted(),
		taskToCreate.DeletedAt(),
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.UpdatedAt, &taskToCreate.Version)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", mapError(err))
	}

	warnIfSlow(start, time.Millisecond*50)
	return nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				priority = $4,
				due_date = $5::date,
				due_time = $6::time,
				completed_at = $7,
				version = version + 1,
				updated_at = NOW()
			WHERE id = $8 AND version = $9
			RETURNING updated_at, version`

	err := s.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Status,
		taskToUpdate.Priority,
		dateParam(taskToUpdate.DueDate),
		timeParam(taskToUpdate.DueTime),
		taskToUpdate.CompletedAt,
		taskToUpdate.ID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToUpdate.ID, taskToUpdate.Version)
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("обновление задачи: %w", mapError(err))
	}

	warnIfSlow(start, time.Millisecond*100)
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	t, err := scanTask(s.pool.QueryRow(ctx, selectTask+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnIfSlow(start, time.Millisecond*100)
	return t, nil
}

// мягкое удаление: задача уходит в корзину
func (s *Storage) DeleteSoft(ctx context.Context, taskToDelete *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
				SET deleted = TRUE,
				deleted_at = NOW(),
				version = version + 1
			WHERE id = $1 AND version = $2
			RETURNING deleted_at, version`

	var deletedAt time.Time
	err := s.pool.QueryRow(ctx, query, taskToDelete.ID, taskToDelete.Version).Scan(&deletedAt, &taskToDelete.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToDelete.ID, taskToDelete.Version)
		}
		logger.Error("Repository: Мягкое удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("мягкое удаление: %w", err)
	}
	taskToDelete.Lifecycle = task.Trashed(deletedAt)

	warnIfSlow(start, time.Millisecond*100)
	return nil
}

// восстановление из корзины
func (s *Storage) Restore(ctx context.Context, taskToRestore *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
				SET deleted = FALSE,
				deleted_at = NULL,
				version = version + 1
			WHERE id = $1 AND version = $2
			RETURNING version`

	err := s.pool.QueryRow(ctx, query, taskToRestore.ID, taskToRestore.Version).Scan(&taskToRestore.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missingOrConflict(ctx, taskToRestore.ID, taskToRestore.Version)
		}
		logger.Error("Repository: Восстановление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("восстановление задачи: %w", err)
	}
	taskToRestore.Lifecycle = task.Active()

	warnIfSlow(start, time.Millisecond*100)
	return nil
}

// полное удаление из БД, подзадачи и связи с тегами уходят каскадом
func (s *Storage) DeleteFull(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Полное удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("полное удаление: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	warnIfSlow(start, time.Millisecond*100)
	return nil
}

func (s *Storage) List(ctx context.Context, q task.Query) ([]*task.Task, error) {
	start := time.Now()

	where, args := buildWhere(q)
	query := selectTask + " WHERE " + where + " ORDER BY " + orderBy(q.Order)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*50+time.Millisecond*time.Duration(len(tasks)) {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)), zap.Int("rows", len(tasks)))
	}
	return tasks, nil
}

// PurgeTrashedBefore удаляет задачи, лежащие в корзине дольше cutoff
func (s *Storage) PurgeTrashedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	start := time.Now()

	query := `DELETE FROM tasks
				WHERE id IN (
					SELECT id FROM tasks
					WHERE deleted = TRUE AND deleted_at < $1
					ORDER BY deleted_at
					LIMIT $2
				)`

	tag, err := s.pool.Exec(ctx, query, cutoff, limit)
	if err != nil {
		logger.Error("Repository: Очистка корзины", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("очистка корзины: %w", err)
	}

	warnIfSlow(start, time.Millisecond*200)
	return int(tag.RowsAffected()), nil
}

func (s *Storage) AddTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	start := time.Now()

	query := `INSERT INTO task_tags (task_id, tag_id)
				SELECT $1, unnest($2::uuid[])
				ON CONFLICT DO NOTHING`

	_, err := s.pool.Exec(ctx, query, taskID, uuidStrings(tagIDs))
	if err != nil {
		logger.Error("Repository: Не удалось привязать теги", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("привязка тегов: %w", mapError(err))
	}

	warnIfSlow(start, time.Millisecond*50)
	return nil
}

// nil снимает с задачи все теги, пустой список ничего не меняет
func (s *Storage) RemoveTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if tagIDs != nil && len(tagIDs) == 0 {
		return nil
	}
	start := time.Now()

	var err error
	if tagIDs == nil {
		_, err = s.pool.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID)
	} else {
		_, err = s.pool.Exec(ctx, `DELETE FROM task_tags WHERE task_id = $1 AND tag_id = ANY($2::uuid[])`,
			taskID, uuidStrings(tagIDs))
	}
	if err != nil {
		logger.Error("Repository: Не удалось снять теги", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("снятие тегов: %w", err)
	}

	warnIfSlow(start, time.Millisecond*50)
	return nil
}

// UPDATE ... WHERE version = $n ничего не вернул: задачи нет или версия устарела
func (s *Storage) missingOrConflict(ctx context.Context, id uuid.UUID, version int) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("проверка задачи: %w", err)
	}
	if !exists {
		return repo.ErrNotFound
	}
	logger.Warn("Repository: Конфликт версий",
		zap.String("task_id", id.String()),
		zap.Int("expected_version", version))
	return repo.ErrVersionConflict
}

func buildWhere(q task.Query) (string, []any) {
	conds := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "t.user_id = "+arg(q.UserID))
	conds = append(conds, "t.deleted = "+arg(q.Trashed))

	if q.Status != nil {
		conds = append(conds, "t.status = "+arg(string(*q.Status)))
	}
	if q.ExcludeStatus != nil {
		conds = append(conds, "t.status <> "+arg(string(*q.ExcludeStatus)))
	}
	if q.DueOnOrBefore != nil {
		cond := "t.due_date <= " + arg(q.DueOnOrBefore.String()) + "::date"
		if q.IncludeUndated {
			cond = "(t.due_date IS NULL OR " + cond + ")"
		}
		conds = append(conds, cond)
	}
	if q.DueFrom != nil {
		conds = append(conds, "t.due_date >= "+arg(q.DueFrom.String())+"::date")
	}
	if q.Search != "" {
		p := arg("%" + escapeLike(q.Search) + "%")
		conds = append(conds, "(t.title ILIKE "+p+" OR t.description ILIKE "+p+")")
	}
	return strings.Join(conds, " AND "), args
}

func orderBy(order task.Order) string {
	switch order {
	case task.OrderDueAsc:
		return "t.due_date ASC NULLS LAST, t.due_time ASC NULLS LAST"
	case task.OrderCompletedDesc:
		return "t.completed_at DESC NULLS LAST"
	case task.OrderDeletedDesc:
		return "t.deleted_at DESC NULLS LAST"
	default:
		return "t.created_at DESC"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func dateParam(d *task.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func timeParam(t *task.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

func uuidStrings(ids []uuid.UUID) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		res = append(res, id.String())
	}
	return res
}

// mapError переводит ошибки postgres в ошибки пакета repository
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repo.ErrDuplicate
		case "23503":
			return repo.ErrNotFound
		}
	}
	return err
}

func warnIfSlow(start time.Time, threshold time.Duration) {
	if time.Since(start) > threshold {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
}
