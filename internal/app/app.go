package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/migrations"
	"taskflow/internal/realtime"
	"taskflow/internal/repository/task/inmemory"
	"taskflow/internal/repository/task/postgres"
	"taskflow/internal/service"
	"taskflow/internal/worker"
	"taskflow/pkg/translator"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Repositories - набор хранилищ; в деградированном режиме все поля nil
type Repositories struct {
	Tasks    service.TaskRepository
	Tags     service.TagRepository
	Subtasks service.SubtaskRepository
	Users    auth.UserRepository
}

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository Repositories
	tasks      *service.TaskService
	tags       *service.TagService
	subtasks   *service.SubtaskService
	provider   *auth.Provider
	translator *translator.Translator
	hub        *realtime.Hub
	listener   *realtime.Listener
	worker     *worker.TrashWorker
	shutdowns  []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.InitCore(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}

	loc, _ := a.config.Location()
	a.router = a.newRouter(loc)
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("degraded", a.config.Degraded()),
		zap.String("addr", a.server.Addr))
	return a, nil
}

// InitCore собирает хранилище, сервисы и провайдер входа без HTTP-слоя; логгер должен быть готов
func (a *App) InitCore(ctx context.Context) error {
	loc, err := a.config.Location()
	if err != nil {
		return err
	}

	a.hub = realtime.NewHub(a.config.App.RealtimeBuffer)
	a.shutdowns = append(a.shutdowns, a.hub.Close)

	if err := a.initRepository(ctx); err != nil {
		return err
	}

	opts := []service.Option{service.WithLocation(loc), service.WithSubscriber(a.hub)}
	if a.listener == nil {
		// без LISTEN/NOTIFY события публикует сам сервис
		opts = append(opts, service.WithNotifier(a.hub))
	}
	a.tasks = service.NewTaskService(a.repository.Tasks, a.repository.Tags, opts...)
	a.tags = service.NewTagService(a.repository.Tags, opts...)
	a.subtasks = service.NewSubtaskService(a.repository.Subtasks, a.repository.Tasks, opts...)

	a.provider = auth.NewProvider(a.repository.Users, auth.Config{
		Secret:     a.authSecret(),
		AccessTTL:  a.config.Auth.AccessTTL,
		RefreshTTL: a.config.Auth.RefreshTTL,
		ResetTTL:   a.config.Auth.ResetTTL,
	}, auth.LogMailer{})

	a.translator, err = translator.New(a.config.App.LocalesDir)
	if err != nil {
		return fmt.Errorf("загрузка переводов: %w", err)
	}

	if a.repository.Tasks != nil {
		a.worker = worker.NewTrashWorker(a.repository.Tasks, a.config.Trash.Retention, &a.config.Trash.Interval, &a.config.Trash.BatchSize)
	}
	return nil
}

// Services - собранное ядро для клиентов без HTTP (CLI)
type Services struct {
	Tasks    *service.TaskService
	Tags     *service.TagService
	Subtasks *service.SubtaskService
	Provider *auth.Provider
	Hub      *realtime.Hub
	Listener *realtime.Listener
	Trash    *worker.TrashWorker
}

func (a *App) Services() Services {
	return Services{
		Tasks:    a.tasks,
		Tags:     a.tags,
		Subtasks: a.subtasks,
		Provider: a.provider,
		Hub:      a.hub,
		Listener: a.listener,
		Trash:    a.worker,
	}
}

func (a *App) initRepository(ctx context.Context) error {
	switch {
	case a.config.Repository.Type == config.RepositoryInMemory:
		storage := inmemory.NewTaskStorage()
		a.repository = Repositories{Tasks: storage, Tags: storage, Subtasks: storage, Users: storage}
		logger.Info("App: Используется хранилище в памяти")
		return nil

	case a.config.Degraded():
		logger.Warn("App: Параметры подключения не заданы, сервис работает в деградированном режиме",
			zap.Bool("url_set", a.config.Backend.URL != ""),
			zap.Bool("api_key_set", a.config.Backend.APIKey != ""))
		a.repository = Repositories{}
		return nil
	}

	if a.config.Database.Migrate {
		if err := migrations.Up(a.config.Backend.URL); err != nil {
			return fmt.Errorf("миграции: %w", err)
		}
	}

	storage, err := postgres.New(ctx, a.config.Backend.URL, postgres.PoolConfig{
		MaxConns:    int32(a.config.Database.MaxConnections),
		MinConns:    int32(a.config.Database.MinConnections),
		IdleTimeout: a.config.Database.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("подключение к хранилищу: %w", err)
	}
	a.shutdowns = append(a.shutdowns, storage.Close)

	a.repository = Repositories{Tasks: storage, Tags: storage, Subtasks: storage, Users: storage}
	a.listener = realtime.NewListener(storage.Pool(), a.hub)
	return nil
}

// authSecret: без настроенного секрета токены живут до перезапуска процесса
func (a *App) authSecret() string {
	if a.config.Auth.Secret != "" {
		return a.config.Auth.Secret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("генерация секрета: %v", err))
	}
	logger.Warn("App: auth.secret не задан, сгенерирован временный секрет")
	return hex.EncodeToString(buf)
}

// Run запускает HTTP-сервер, слушатель изменений и очистку корзины до отмены ctx
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("App: Остановка сервера")
		// открытые потоки событий закрываются вместе с хабом
		a.hub.Close()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	if a.listener != nil {
		g.Go(func() error {
			return a.listener.Run(gctx)
		})
	}

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

// Shutdown выполняет зарегистрированные функции в обратном порядке
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}

func (a *App) Router() http.Handler {
	return a.server.Handler
}
