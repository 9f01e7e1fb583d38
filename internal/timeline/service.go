// Package timeline owns memories, their images, and the valentine message.
package timeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/leca/ourstory/internal/database"
	"github.com/leca/ourstory/internal/model"
	"github.com/leca/ourstory/internal/storage"
)

// DefaultMaxFileSize is the per-file upload ceiling (10 MiB).
const DefaultMaxFileSize int64 = 10 << 20

// Service implements the timeline operations on top of the database and
// blob storage.
type Service struct {
	db          database.Database
	files       storage.Storage
	validate    *validator.Validate
	maxFileSize int64
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxFileSize sets the per-file upload ceiling in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db database.Database, files storage.Storage, opts ...Option) *Service {
	s := &Service{
		db:          db,
		files:       files,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		maxFileSize: DefaultMaxFileSize,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxFileSize reports the configured per-file ceiling.
func (s *Service) MaxFileSize() int64 { return s.maxFileSize }

func (s *Service) timestamp() time.Time { return s.now().UTC() }

// ---------------------------------------------------------------------------
// Memories
// ---------------------------------------------------------------------------

// newMemory is the validated shape of a create request.
type newMemory struct {
	Title   string `validate:"required"`
	Section string `validate:"required"`
	Body    string `validate:"required"`
}

func (s *Service) ListMemories(ctx context.Context) ([]*model.Memory, error) {
	return s.db.ListMemories(ctx)
}

func (s *Service) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	m, err := s.db.GetMemory(ctx, id)
	if err != nil {
		return nil, notFound(err, "Memory not found")
	}
	return m, nil
}

// CreateMemory inserts a memory at the end of the timeline. Title, section
// and body must be present and not blank.
func (s *Service) CreateMemory(ctx context.Context, f model.MemoryFields) (*model.Memory, error) {
	in := newMemory{
		Title:   trimmed(f.Title),
		Section: trimmed(f.Section),
		Body:    trimmed(f.Body),
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, &Error{Kind: ErrValidation, Msg: "Title, section, and body are required", Detail: err}
	}

	now := s.timestamp()
	m := &model.Memory{
		ID:        uuid.NewString(),
		Title:     *f.Title,
		Date:      optional(f.Date),
		Section:   *f.Section,
		Body:      *f.Body,
		Location:  optional(f.Location),
		CreatedAt: now,
		UpdatedAt: now,
		Images:    []*model.Image{},
	}
	if err := s.db.CreateMemory(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMemory applies the supplied fields. A nil field keeps its stored
// value, as does a blank required field. An empty date or location clears it.
func (s *Service) UpdateMemory(ctx context.Context, id string, f model.MemoryFields) (*model.Memory, error) {
	m, err := s.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := trimmed(f.Title); v != "" {
		m.Title = *f.Title
	}
	if v := trimmed(f.Section); v != "" {
		m.Section = *f.Section
	}
	if v := trimmed(f.Body); v != "" {
		m.Body = *f.Body
	}
	if f.Date != nil {
		m.Date = optional(f.Date)
	}
	if f.Location != nil {
		m.Location = optional(f.Location)
	}
	m.UpdatedAt = s.timestamp()

	if err := s.db.UpdateMemory(ctx, m); err != nil {
		return nil, notFound(err, "Memory not found")
	}
	return m, nil
}

// DeleteMemory removes the memory, its image records, and their stored files.
func (s *Service) DeleteMemory(ctx context.Context, id string) error {
	m, err := s.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteMemory(ctx, id); err != nil {
		return notFound(err, "Memory not found")
	}

	for _, img := range m.Images {
		if err := s.files.Delete(ctx, img.Filename); err != nil {
			slog.Error("failed to remove image file", "memory_id", id, "file", img.Filename, "error", err)
		}
	}
	return nil
}

// ReorderMemories applies each sort order independently. Unknown ids are
// ignored and one failing item does not stop the rest.
func (s *Service) ReorderMemories(ctx context.Context, items []model.OrderItem) error {
	if err := s.validateOrder(items); err != nil {
		return err
	}
	return s.db.ReorderMemories(ctx, items)
}

func (s *Service) validateOrder(items []model.OrderItem) error {
	if items == nil {
		return validationError("Order must be an array")
	}
	for _, it := range items {
		if err := s.validate.Struct(it); err != nil {
			return &Error{Kind: ErrValidation, Msg: "Each order entry needs an id", Detail: err}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Valentine message
// ---------------------------------------------------------------------------

func (s *Service) GetMessage(ctx context.Context) (*model.ValentineMessage, error) {
	msg, err := s.db.GetValentine(ctx)
	if err != nil {
		return nil, notFound(err, "Valentine message not found")
	}
	return msg, nil
}

// UpdateMessage replaces the singleton message. Omitted or empty fields
// reset to their defaults; see model.ValentineFields.Apply.
func (s *Service) UpdateMessage(ctx context.Context, f model.ValentineFields) (*model.ValentineMessage, error) {
	msg := f.Apply(s.timestamp())
	if err := s.db.UpdateValentine(ctx, msg); err != nil {
		return nil, notFound(err, "Valentine message not found")
	}
	return msg, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// optional maps nil and "" to nil.
func optional(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	v := *p
	return &v
}
