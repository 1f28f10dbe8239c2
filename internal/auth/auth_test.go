package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(testLogger()) })
	require.NoError(t, repository.Migrate(ctx, db))
	return NewService(repository.NewUserRepository(db, testLogger()), NewTokens("test-secret", time.Hour), testLogger())
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret!"))
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	id := uuid.New()

	raw, err := tokens.Issue(id)
	require.NoError(t, err)
	got, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = NewTokens("other-secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tokens.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sess, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: " Asha@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "asha@example.com", sess.User.Email)

	u, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, u.ID)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Again", Email: "asha@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrConflict)

	login, err := svc.Login(ctx, LoginRequest{Email: "ASHA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "nope"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "", Email: "bad", Password: "123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)

	var verrs common.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestAuthenticate_Rejects(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	orphan, err := svc.tokens.Issue(uuid.New())
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	sess, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := svc.UpdateProfile(ctx, sess.User.ID, UpdateProfileRequest{Name: "  Asha K "})
	require.NoError(t, err)
	assert.Equal(t, "Asha K", u.Name)

	_, err = svc.UpdateProfile(ctx, sess.User.ID, UpdateProfileRequest{Name: "   "})
	assert.ErrorIs(t, err, common.ErrValidation)
}
