package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cardscan/internal/async"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/contacts"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	repo "github.com/joseph-ayodele/cardscan/internal/repository"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type stubExtractor map[string]extract.ContactRecord

func (s stubExtractor) Extract(_ context.Context, path string) (extract.ContactRecord, error) {
	if rec, ok := s[path]; ok {
		return rec, nil
	}
	return extract.SentinelRecord(), nil
}

func (s stubExtractor) ExtractPair(ctx context.Context, front, _ string) (extract.ContactRecord, error) {
	return s.Extract(ctx, front)
}

func TestImportHandler(t *testing.T) {
	ctx := context.Background()
	db, err := repo.OpenSQLite(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared", discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(discard()) })
	require.NoError(t, repo.Migrate(ctx, db))

	user, err := repo.NewUserRepository(db, discard()).Create(ctx, "Asha", "asha@example.com", "x")
	require.NoError(t, err)
	contactRepo := repo.NewContactRepository(db, discard())
	svc := contacts.NewService(contactRepo, repo.NewActivityRepository(db, discard()), stubExtractor{
		"a.jpg":      {Company: "Acme", Phones: []string{"9829550499"}},
		"a-copy.jpg": {Company: "Acme Copy", Phones: []string{"+91 98295 50499"}},
	}, discard())
	h := ImportHandler(svc, discard())

	require.NoError(t, h.Handle(ctx, async.Job{UserID: user.ID, Path: "a.jpg"}))
	// duplicate by phone is a skip, not a failure
	require.NoError(t, h.Handle(ctx, async.Job{UserID: user.ID, Path: "a-copy.jpg"}))
	assert.Error(t, h.Handle(ctx, async.Job{UserID: user.ID, Path: "blank.jpg"}))

	rows, total, err := contactRepo.List(ctx, user.ID, entity.ContactFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Acme", rows[0].Company)
}

func TestNewExtractor_WithoutCredentials(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := common.DefaultConfig()
	cfg.OCR.Engine = "none"

	ext, err := NewExtractor(context.Background(), cfg, NewRegistry(), discard())
	require.NoError(t, err)
	assert.NotNil(t, ext)

	cfg.OCR.Engine = "paper"
	_, err = NewExtractor(context.Background(), cfg, nil, discard())
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	mfs, err := NewRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}
