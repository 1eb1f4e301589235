package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"taskflow/internal/auth"
	"taskflow/internal/logger"
	"taskflow/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const sessionFile = "session.yaml"

func sessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("каталог конфигурации: %w", err)
	}
	return filepath.Join(dir, "taskflow", sessionFile), nil
}

func loadSession() (*auth.Session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("чтение сессии: %w", err)
	}
	var s auth.Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("разбор сессии: %w", err)
	}
	return &s, nil
}

func saveSession(s *auth.Session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("создание каталога сессии: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("сериализация сессии: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("запись сессии: %w", err)
	}
	return nil
}

func removeSession() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}

// login кладёт сессию в holder и на диск
func (e *env) login(s *auth.Session) error {
	e.holder.Set(s)
	return saveSession(s)
}

// requireUser восстанавливает сессию с диска; просроченный access-токен обновляется по refresh
func (e *env) requireUser(ctx context.Context) (uuid.UUID, error) {
	if id, ok := e.holder.UserID(); ok {
		return id, nil
	}

	svc, err := e.core(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	s, err := loadSession()
	if err != nil {
		return uuid.Nil, err
	}
	if s == nil {
		return uuid.Nil, service.NewUnauthorized("выполните taskflow login")
	}

	if _, err := svc.Provider.Verify(s.AccessToken); err != nil {
		logger.Debug("CLI: Access-токен недействителен, обновление", zap.Error(err))
		refreshed, err := svc.Provider.Refresh(ctx, s.RefreshToken)
		if err != nil {
			_ = removeSession()
			return uuid.Nil, service.NewUnauthorized("сессия истекла, выполните taskflow login")
		}
		s = refreshed
		if err := saveSession(s); err != nil {
			return uuid.Nil, err
		}
	}

	e.holder.Set(s)
	id, _ := e.holder.UserID()
	return id, nil
}
