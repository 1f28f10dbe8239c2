package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	svc        *Service
	contacts   repository.ContactRepository
	activities repository.ActivityRepository
	userID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared", discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(discard()) })
	require.NoError(t, repository.Migrate(ctx, db))

	u, err := repository.NewUserRepository(db, discard()).Create(ctx, "Asha", "asha@example.com", "hash")
	require.NoError(t, err)

	f := &fixture{
		contacts:   repository.NewContactRepository(db, discard()),
		activities: repository.NewActivityRepository(db, discard()),
		userID:     u.ID,
	}
	f.svc = NewService(f.contacts, f.activities, discard())
	return f
}

func (f *fixture) add(t *testing.T, company string, sent bool) *entity.Contact {
	t.Helper()
	ctx := context.Background()
	c, err := f.contacts.Create(ctx, &entity.Contact{UserID: f.userID, Company: company, Phone1: "9829550499"})
	require.NoError(t, err)
	if sent {
		c, err = f.contacts.SetSent(ctx, f.userID, c.ID, true)
		require.NoError(t, err)
	}
	return c
}

func TestVCF_MarksUnsentAsSent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "Alpha", false)
	f.add(t, "Beta", true)

	out, err := f.svc.VCF(ctx, Request{UserID: f.userID, Filter: constants.ExportAll, MarkSent: true})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, 1, out.Marked)
	assert.Equal(t, ContentTypeVCF, out.ContentType)
	assert.True(t, strings.HasSuffix(out.Filename, ".vcf"))
	assert.Equal(t, 2, strings.Count(string(out.Data), "BEGIN:VCARD"))
	assert.Contains(t, string(out.Data), "ORG:Alpha")

	st, err := f.contacts.Stats(ctx, f.userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Sent)

	acts, err := f.activities.List(ctx, f.userID, 5)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, constants.ActionExported, acts[0].Action)
	assert.Equal(t, "Exported 2 contact(s) as VCF (filter: all)", acts[0].Details)
	assert.Nil(t, acts[0].ContactID)

	_, err = f.svc.VCF(ctx, Request{UserID: f.userID, Filter: constants.ExportUnsent, MarkSent: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "All contacts are already sent")
}

func TestVCF_WithoutMarking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "Alpha", false)

	out, err := f.svc.VCF(ctx, Request{UserID: f.userID, Filter: constants.ExportUnsent})
	require.NoError(t, err)
	assert.Zero(t, out.Marked)

	rows, err := f.contacts.ListForExport(ctx, f.userID, constants.ExportUnsent.SentFlag())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestVCF_EmptyFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := map[constants.ExportFilter]string{
		constants.ExportSent:   "No sent contacts found",
		constants.ExportUnsent: "All contacts are already sent",
	}
	for filter, msg := range cases {
		_, err := f.svc.VCF(ctx, Request{UserID: f.userID, Filter: filter})
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr, filter)
		assert.Equal(t, msg, appErr.Message)
	}

	out, err := f.svc.VCF(ctx, Request{UserID: f.userID, Filter: constants.ExportAll, MarkSent: true})
	require.NoError(t, err)
	assert.Zero(t, out.Count)
	assert.Zero(t, out.Marked)
	assert.Empty(t, out.Data)

	wb, err := f.svc.XLSX(ctx, Request{UserID: f.userID, Filter: constants.ExportAll})
	require.NoError(t, err)
	assert.Zero(t, wb.Count)
	assert.NotEmpty(t, wb.Data)
}

func TestToVCF(t *testing.T) {
	c := &entity.Contact{Company: "Acme", Name: "Ravi", Phone1: "1", Phone3: "3", Note: "met at expo"}
	got := ToVCF(c)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, []string{"1", "3"}, got.Phones)
	assert.Equal(t, "met at expo\nContact: Ravi", got.Note)

	got = ToVCF(&entity.Contact{Name: "Ravi"})
	assert.Equal(t, "Ravi", got.Name)
	assert.Empty(t, got.Note)
}

func TestXLSX(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "Alpha", false)
	f.add(t, "Beta", true)

	out, err := f.svc.XLSX(ctx, Request{UserID: f.userID, Filter: constants.ExportSent})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeXLSX, out.ContentType)
	assert.Equal(t, 1, out.Count)

	wb, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, xlsxHeaders, rows[0])
	assert.Equal(t, "Beta", rows[1][0])
	assert.Equal(t, "Yes", rows[1][9])

	// xlsx never changes flags
	st, err := f.contacts.Stats(ctx, f.userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Unsent)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "रू…", truncate("रूप वर्षा", 3))
}
