package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/repository"
	"github.com/joseph-ayodele/cardscan/internal/vcf"
)

// Service turns a user's stored contacts into downloadable files.
type Service struct {
	contacts   repository.ContactRepository
	activities repository.ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(contacts repository.ContactRepository, activities repository.ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{contacts: contacts, activities: activities, logger: logger, now: time.Now}
}

// Request selects what an export includes. MarkSent flags exported unsent
// contacts as sent; it only applies to vCard exports.
type Request struct {
	UserID   uuid.UUID
	Filter   constants.ExportFilter
	MarkSent bool
}

// File is a rendered export.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
	Count       int
	Marked      int
}

const (
	ContentTypeVCF  = "text/vcard"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// VCF renders the selected contacts as vCard 3.0 records.
func (s *Service) VCF(ctx context.Context, req Request) (*File, error) {
	start := s.now()
	rows, err := s.selectContacts(ctx, req)
	if err != nil {
		return nil, err
	}

	in := make([]vcf.Contact, 0, len(rows))
	for _, c := range rows {
		in = append(in, ToVCF(c))
	}
	out := &File{
		Filename:    fmt.Sprintf("contacts_%d.vcf", start.UnixMilli()),
		ContentType: ContentTypeVCF,
		Data:        []byte(vcf.Serialize(in)),
		Count:       len(rows),
	}

	if req.MarkSent && req.Filter != constants.ExportSent {
		ids := make([]uuid.UUID, 0, len(rows))
		for _, c := range rows {
			if !c.Sent {
				ids = append(ids, c.ID)
			}
		}
		if out.Marked, err = s.contacts.MarkSent(ctx, req.UserID, ids); err != nil {
			return nil, fmt.Errorf("mark sent: %w", err)
		}
	}

	details := fmt.Sprintf("Exported %d contact(s) as VCF (filter: %s)", out.Count, req.Filter)
	if _, err := s.activities.Log(ctx, req.UserID, constants.ActionExported, nil, details); err != nil {
		s.logger.Warn("activity log failed", "action", constants.ActionExported.String(), "user_id", req.UserID, "error", err)
	}

	s.logger.Info("export.vcf.ok",
		"user_id", req.UserID.String(),
		"filter", string(req.Filter),
		"rows", out.Count,
		"marked", out.Marked,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) selectContacts(ctx context.Context, req Request) ([]*entity.Contact, error) {
	if req.Filter == "" {
		req.Filter = constants.ExportAll
	}
	rows, err := s.contacts.ListForExport(ctx, req.UserID, req.Filter.SentFlag())
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	// an empty "all" export is an empty file
	if len(rows) == 0 && req.Filter != constants.ExportAll {
		return nil, common.NewAppError("NOTHING_TO_EXPORT", emptyMessage(req.Filter), common.ErrInvalidInput)
	}
	return rows, nil
}

func emptyMessage(f constants.ExportFilter) string {
	if f == constants.ExportUnsent {
		return "All contacts are already sent"
	}
	return "No sent contacts found"
}

// ToVCF projects a stored contact onto serializer input. The card's company
// is the display name; the person name goes into the note.
func ToVCF(c *entity.Contact) vcf.Contact {
	name := c.Company
	if name == "" {
		name = c.Name
	}
	note := c.Note
	if c.Name != "" && c.Name != name {
		if note != "" {
			note += "\n"
		}
		note += "Contact: " + c.Name
	}
	return vcf.Contact{
		Name:    name,
		Company: c.Company,
		Phones:  c.Phones(),
		Email:   c.Email,
		Address: c.Address,
		Note:    note,
	}
}
