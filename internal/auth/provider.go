package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"taskflow/internal/logger"
	"taskflow/internal/models/user"
	rep "taskflow/internal/repository"
	"taskflow/internal/service"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

type TokenKind string

const TokenAccess TokenKind = "access"
const TokenRefresh TokenKind = "refresh"
const TokenReset TokenKind = "reset"

type UserRepository interface {
	CreateUser(context.Context, *user.User) error
	GetUserByEmail(context.Context, string) (*user.User, error)
	GetUserByID(context.Context, uuid.UUID) (*user.User, error)
	UpdatePassword(context.Context, uuid.UUID, string) error
}

// Mailer доставляет ссылку на сброс пароля
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer только пишет токен в лог: почтового транспорта у сервиса нет
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	logger.Info("Auth: Запрошен сброс пароля", zap.String("email", email), zap.Int("token_len", len(token)))
	return nil
}

type Claims struct {
	Email string    `json:"email"`
	Kind  TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type Session struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token" yaml:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" yaml:"expires_at"`
	User         user.User `json:"user" yaml:"user"`
}

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// Provider - вход по email и паролю поверх UserRepository, токены JWT HS256.
// Отозванные токены хранятся в памяти до истечения срока.
type Provider struct {
	users   UserRepository
	secret  []byte
	cfg     Config
	mailer  Mailer
	now     func() time.Time
	mtx     sync.Mutex
	revoked map[string]time.Time
}

func NewProvider(users UserRepository, cfg Config, mailer Mailer) *Provider {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = time.Hour * 24 * 30
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Minute * 30
	}
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Provider{
		users:   users,
		secret:  []byte(cfg.Secret),
		cfg:     cfg,
		mailer:  mailer,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// WithClock подменяет часы, нужен тестам
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

func (p *Provider) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	if p.users == nil {
		return nil, service.NewConfigurationError()
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, service.NewValidationError("password", fmt.Sprintf("минимум %d символов", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: string(hash),
	}
	if err := p.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, rep.ErrDuplicate) {
			return nil, service.NewConflict("пользователь", "email уже зарегистрирован")
		}
		logger.Error("Auth: Не удалось создать пользователя", err)
		return nil, service.NewStorageError("sign_up", err)
	}

	logger.Info("Auth: Пользователь зарегистрирован", zap.String("user_id", u.ID.String()))
	return p.issue(u)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if p.users == nil {
		return nil, service.NewConfigurationError()
	}

	u, err := p.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Auth: Неудачная попытка входа")
			return nil, service.NewUnauthorized("неверный email или пароль")
		}
		return nil, service.NewStorageError("sign_in", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		logger.Info("Auth: Неудачная попытка входа", zap.String("user_id", u.ID.String()))
		return nil, service.NewUnauthorized("неверный email или пароль")
	}

	logger.Info("Auth: Вход выполнен", zap.String("user_id", u.ID.String()))
	return p.issue(u)
}

// SignOut отзывает переданные токены; пустые строки пропускаются
func (p *Provider) SignOut(ctx context.Context, tokens ...string) error {
	for _, raw := range tokens {
		if raw == "" {
			continue
		}
		claims, err := p.parse(raw)
		if err != nil {
			continue
		}
		p.revoke(claims)
	}
	return nil
}

// Refresh выдаёт новую пару токенов, старый refresh-токен отзывается
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if p.users == nil {
		return nil, service.NewConfigurationError()
	}

	claims, err := p.verify(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}
	u, err := p.userFromClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	p.revoke(claims)
	return p.issue(u)
}

// ResetPassword отправляет токен сброса. Неизвестный email не считается ошибкой.
func (p *Provider) ResetPassword(ctx context.Context, email string) error {
	if p.users == nil {
		return service.NewConfigurationError()
	}

	u, err := p.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Auth: Сброс пароля для неизвестного email")
			return nil
		}
		return service.NewStorageError("reset_password", err)
	}

	token, _, err := p.sign(u, TokenReset, p.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("подпись токена: %w", err)
	}
	if err := p.mailer.SendPasswordReset(ctx, u.Email, token); err != nil {
		logger.Error("Auth: Не удалось отправить письмо сброса", err)
		return service.NewStorageError("reset_password", err)
	}
	return nil
}

// ConfirmReset меняет пароль по токену сброса, токен одноразовый
func (p *Provider) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if p.users == nil {
		return service.NewConfigurationError()
	}
	if len(newPassword) < MinPasswordLength {
		return service.NewValidationError("password", fmt.Sprintf("минимум %d символов", MinPasswordLength))
	}

	claims, err := p.verify(token, TokenReset)
	if err != nil {
		return err
	}
	u, err := p.userFromClaims(ctx, claims)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("хеширование пароля: %w", err)
	}
	if err := p.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return service.NewStorageError("confirm_reset", err)
	}
	p.revoke(claims)
	return nil
}

// Verify проверяет access-токен и возвращает его claims
func (p *Provider) Verify(token string) (*Claims, error) {
	return p.verify(token, TokenAccess)
}

func (p *Provider) verify(token string, kind TokenKind) (*Claims, error) {
	claims, err := p.parse(token)
	if err != nil {
		logger.Debug("Auth: Невалидный токен", zap.Error(err))
		return nil, service.NewUnauthorized("невалидный токен")
	}
	if claims.Kind != kind {
		return nil, service.NewUnauthorized("неверный тип токена")
	}
	if p.isRevoked(claims.ID) {
		return nil, service.NewUnauthorized("токен отозван")
	}
	return claims, nil
}

func (p *Provider) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) userFromClaims(ctx context.Context, claims *Claims) (*user.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, service.NewUnauthorized("невалидный токен")
	}
	u, err := p.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, service.NewUnauthorized("пользователь не найден")
		}
		return nil, service.NewStorageError("get_user", err)
	}
	return u, nil
}

func (p *Provider) issue(u *user.User) (*Session, error) {
	access, expiresAt, err := p.sign(u, TokenAccess, p.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("подпись токена: %w", err)
	}
	refresh, _, err := p.sign(u, TokenRefresh, p.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("подпись токена: %w", err)
	}

	safe := *u
	safe.PasswordHash = ""
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		User:         safe,
	}, nil
}

func (p *Provider) sign(u *user.User, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Email: u.Email,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

func (p *Provider) revoke(claims *Claims) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	now := p.now()
	for id, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, id)
		}
	}
	if claims.ExpiresAt != nil {
		p.revoked[claims.ID] = claims.ExpiresAt.Time
	}
}

func (p *Provider) isRevoked(id string) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	_, ok := p.revoked[id]
	return ok
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", service.NewValidationError("email", "некорректный адрес")
	}
	return strings.ToLower(addr.Address), nil
}
