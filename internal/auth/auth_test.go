package auth_test

import (
	"context"
	"errors"
	"sync"
	"taskflow/internal/auth"
	"taskflow/internal/models/user"
	"taskflow/internal/repository/task/inmemory"
	"taskflow/internal/service"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	mtx    sync.Mutex
	tokens map[string]string
	err    error
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[email] = token
	return nil
}

func newProvider(t *testing.T, mailer auth.Mailer) *auth.Provider {
	t.Helper()
	return auth.NewProvider(inmemory.NewTaskStorage(), auth.Config{Secret: "s3cr3t", AccessTTL: time.Minute}, mailer)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, service.IsCode(err, code), "ожидался код %s, получено: %v", code, err)
}

func TestProvider_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t, nil)

	session, err := p.SignUp(ctx, " Ivan@Example.com", "secret1", " Иван ")
	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", session.User.Email)
	assert.Equal(t, "Иван", session.User.FullName)
	assert.Empty(t, session.User.PasswordHash)
	assert.NotEqual(t, session.AccessToken, session.RefreshToken)

	claims, err := p.Verify(session.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, id)
	assert.Equal(t, auth.TokenAccess, claims.Kind)

	_, err = p.SignUp(ctx, "IVAN@example.com", "secret1", "")
	assertCode(t, err, service.CodeConflict)

	_, err = p.SignIn(ctx, "ivan@example.com", "wrong-password")
	assertCode(t, err, service.CodeUnauthorized)
	_, err = p.SignIn(ctx, "nobody@example.com", "secret1")
	assertCode(t, err, service.CodeUnauthorized)

	again, err := p.SignIn(ctx, "ivan@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)
}

func TestProvider_SignUpValidation(t *testing.T) {
	p := newProvider(t, nil)
	tests := []struct {
		name, email, password, field string
	}{
		{name: "bad email", email: "ivan", password: "secret1", field: "email"},
		{name: "display name", email: "Ivan <ivan@example.com>", password: "secret1", field: "email"},
		{name: "short password", email: "ivan@example.com", password: "12345", field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SignUp(context.Background(), tt.email, tt.password, "")
			assertCode(t, err, service.CodeValidation)
			var busErr *service.BusinessError
			require.True(t, errors.As(err, &busErr))
			assert.Equal(t, tt.field, busErr.Details["field"])
		})
	}
}

func TestProvider_TokenKinds(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t, nil)
	session, err := p.SignUp(ctx, "kind@example.com", "secret1", "")
	require.NoError(t, err)

	_, err = p.Verify(session.RefreshToken)
	assertCode(t, err, service.CodeUnauthorized)

	_, err = p.Refresh(ctx, session.AccessToken)
	assertCode(t, err, service.CodeUnauthorized)

	_, err = p.Verify("not-a-jwt")
	assertCode(t, err, service.CodeUnauthorized)

	// токен, подписанный другим ключом
	other := auth.NewProvider(inmemory.NewTaskStorage(), auth.Config{Secret: "other"}, nil)
	foreign, err := other.SignUp(ctx, "kind@example.com", "secret1", "")
	require.NoError(t, err)
	_, err = p.Verify(foreign.AccessToken)
	assertCode(t, err, service.CodeUnauthorized)

	// токен с другим алгоритмом подписи
	none := jwt.NewWithClaims(jwt.SigningMethodNone, &auth.Claims{Kind: auth.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: session.User.ID.String()}})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = p.Verify(raw)
	assertCode(t, err, service.CodeUnauthorized)
}

func TestProvider_RefreshAndSignOut(t *testing.T) {
	ctx := context.Background()
	p := newProvider(t, nil)
	session, err := p.SignUp(ctx, "refresh@example.com", "secret1", "")
	require.NoError(t, err)

	renewed, err := p.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, renewed.User.ID)

	_, err = p.Refresh(ctx, session.RefreshToken)
	assertCode(t, err, service.CodeUnauthorized)

	require.NoError(t, p.SignOut(ctx, renewed.AccessToken, "", "garbage", renewed.RefreshToken))
	_, err = p.Verify(renewed.AccessToken)
	assertCode(t, err, service.CodeUnauthorized)
	_, err = p.Refresh(ctx, renewed.RefreshToken)
	assertCode(t, err, service.CodeUnauthorized)

	// старый access-токен не отзывался
	_, err = p.Verify(session.AccessToken)
	assert.NoError(t, err)
}

func TestProvider_Expiry(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	p := newProvider(t, nil).WithClock(func() time.Time { return current })

	session, err := p.SignUp(ctx, "clock@example.com", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, current.Add(time.Minute), session.ExpiresAt)

	current = current.Add(2 * time.Minute)
	_, err = p.Verify(session.AccessToken)
	assertCode(t, err, service.CodeUnauthorized)

	// refresh живёт дольше access
	_, err = p.Refresh(ctx, session.RefreshToken)
	assert.NoError(t, err)
}

func TestProvider_ResetPassword(t *testing.T) {
	ctx := context.Background()
	mailer := &captureMailer{}
	p := newProvider(t, mailer)
	_, err := p.SignUp(ctx, "reset@example.com", "secret1", "")
	require.NoError(t, err)

	require.NoError(t, p.ResetPassword(ctx, "unknown@example.com"))
	assert.Empty(t, mailer.tokens)

	require.NoError(t, p.ResetPassword(ctx, "reset@example.com"))
	token := mailer.tokens["reset@example.com"]
	require.NotEmpty(t, token)

	_, err = p.Verify(token)
	assertCode(t, err, service.CodeUnauthorized)

	assertCode(t, p.ConfirmReset(ctx, token, "123"), service.CodeValidation)
	require.NoError(t, p.ConfirmReset(ctx, token, "brand-new"))
	assertCode(t, p.ConfirmReset(ctx, token, "another1"), service.CodeUnauthorized)

	_, err = p.SignIn(ctx, "reset@example.com", "secret1")
	assertCode(t, err, service.CodeUnauthorized)
	_, err = p.SignIn(ctx, "reset@example.com", "brand-new")
	assert.NoError(t, err)

	mailer.err = errors.New("smtp down")
	assertCode(t, p.ResetPassword(ctx, "reset@example.com"), service.CodeStorage)
}

func TestProvider_Degraded(t *testing.T) {
	ctx := context.Background()
	p := auth.NewProvider(nil, auth.Config{Secret: "x"}, nil)

	_, err := p.SignUp(ctx, "a@example.com", "secret1", "")
	assertCode(t, err, service.CodeConfiguration)
	_, err = p.SignIn(ctx, "a@example.com", "secret1")
	assertCode(t, err, service.CodeConfiguration)
	assertCode(t, p.ResetPassword(ctx, "a@example.com"), service.CodeConfiguration)
}

func TestHolder(t *testing.T) {
	h := auth.NewHolder()
	_, ok := h.UserID()
	assert.False(t, ok)
	assert.Nil(t, h.Current())

	var order []string
	var kinds []auth.EventKind
	unsubscribe := h.Subscribe(func(e auth.Event) {
		order = append(order, "first")
		kinds = append(kinds, e.Kind)
	})
	h.Subscribe(func(e auth.Event) { order = append(order, "second") })

	id := uuid.New()
	h.Set(&auth.Session{AccessToken: "a", User: user.User{ID: id}})
	h.Set(&auth.Session{AccessToken: "b", User: user.User{ID: id}})
	h.Set(&auth.Session{AccessToken: "c", User: user.User{ID: uuid.New()}})

	current := h.Current()
	require.NotNil(t, current)
	assert.Equal(t, "c", current.AccessToken)
	current.AccessToken = "mutated"
	assert.Equal(t, "c", h.Current().AccessToken, "Current возвращает копию")

	h.Set(nil)
	h.Clear()

	assert.Equal(t, []auth.EventKind{auth.SignedIn, auth.TokenRefreshed, auth.SignedIn, auth.SignedOut}, kinds)
	assert.Equal(t, []string{"first", "second", "first", "second", "first", "second", "first", "second"}, order)

	unsubscribe()
	h.Set(&auth.Session{User: user.User{ID: id}})
	assert.Len(t, kinds, 4)
	assert.Len(t, order, 9)
}
