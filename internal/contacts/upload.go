package contacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/entity"
	"github.com/joseph-ayodele/cardscan/internal/extract"
)

// Extractor reads contact details off card images.
type Extractor interface {
	Extract(ctx context.Context, path string) (extract.ContactRecord, error)
	ExtractPair(ctx context.Context, frontPath, backPath string) (extract.ContactRecord, error)
}

// ErrNoExtractor is returned by Upload when the service was built without one.
var ErrNoExtractor = errors.New("contacts: no extractor configured")

// DuplicateError reports that an uploaded card matches a stored contact by
// phone. Incoming is the contact that would have been created.
type DuplicateError struct {
	Existing *entity.Contact
	Incoming *entity.Contact
}

func (e *DuplicateError) Error() string {
	return "contact with this phone number already exists"
}

func (e *DuplicateError) Unwrap() error { return common.ErrConflict }

// UploadRequest names the card image(s) on disk. BackPath is optional.
type UploadRequest struct {
	UserID    uuid.UUID
	FrontPath string
	BackPath  string
}

// UploadResult carries the stored contact and what the extractor returned.
type UploadResult struct {
	Contact   *entity.Contact       `json:"contact"`
	Extracted extract.ContactRecord `json:"extracted"`
}

// Upload extracts a card, checks for a stored contact with one of the same
// phones, and stores the result. Nothing is stored when the extractor could
// not read the card or when a duplicate exists.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if s.extractor == nil {
		return nil, ErrNoExtractor
	}
	var (
		rec extract.ContactRecord
		err error
	)
	if req.BackPath != "" {
		rec, err = s.extractor.ExtractPair(ctx, req.FrontPath, req.BackPath)
	} else {
		rec, err = s.extractor.Extract(ctx, req.FrontPath)
	}
	if err != nil {
		s.logger.Error("card extraction failed", "user_id", req.UserID, "file", filepath.Base(req.FrontPath), "error", err)
		return nil, fmt.Errorf("extract card: %w", err)
	}
	if extract.IsSentinel(rec) {
		return nil, common.NewAppError("EXTRACTION_FAILED", extract.FailureSentinel, common.ErrUnprocessable)
	}

	incoming := FromRecord(req.UserID, rec)
	existing, err := s.contacts.FindDuplicate(ctx, req.UserID, incoming.Phones())
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		s.logger.Info("duplicate card", "user_id", req.UserID, "existing_id", existing.ID)
		return nil, &DuplicateError{Existing: existing, Incoming: incoming}
	}

	created, err := s.contacts.Create(ctx, incoming)
	if err != nil {
		return nil, fmt.Errorf("store contact: %w", err)
	}
	s.record(ctx, req.UserID, constants.ActionUploaded, &created.ID, "Uploaded visiting card: "+created.Company)
	s.logger.Info("card uploaded",
		"contact_id", created.ID,
		"user_id", req.UserID,
		"phones", len(created.Phones()),
		"both_sides", req.BackPath != "",
	)
	return &UploadResult{Contact: created, Extracted: rec}, nil
}

// FromRecord maps an extractor record onto an unsaved contact with cleaned phones.
func FromRecord(userID uuid.UUID, rec extract.ContactRecord) *entity.Contact {
	c := &entity.Contact{
		UserID:  userID,
		Company: rec.Company,
		Name:    rec.PersonName,
		Email:   rec.Email,
		Website: rec.Website,
		Address: rec.Address,
		RawText: rec.RawText,
	}
	c.SetPhones(CleanPhones(rec.Phones))
	return c
}
