package database

import (
	"context"
	"errors"

	"github.com/leca/ourstory/internal/model"
)

// ErrNotFound is returned when a lookup or a targeted update/delete matches no row.
var ErrNotFound = errors.New("not found")

// Database defines the persistence interface for all domain objects.
type Database interface {
	// Memories
	ListMemories(ctx context.Context) ([]*model.Memory, error)
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	MemoryExists(ctx context.Context, id string) (bool, error)
	CreateMemory(ctx context.Context, m *model.Memory) error
	UpdateMemory(ctx context.Context, m *model.Memory) error
	DeleteMemory(ctx context.Context, id string) error
	ReorderMemories(ctx context.Context, items []model.OrderItem) error

	// Images
	CreateImage(ctx context.Context, img *model.Image) error
	GetImage(ctx context.Context, memoryID, imageID string) (*model.Image, error)
	UpdateImageAlt(ctx context.Context, memoryID, imageID, alt string) error
	DeleteImage(ctx context.Context, memoryID, imageID string) error
	ReorderImages(ctx context.Context, memoryID string, items []model.OrderItem) error

	// Valentine message
	GetValentine(ctx context.Context) (*model.ValentineMessage, error)
	UpdateValentine(ctx context.Context, msg *model.ValentineMessage) error

	// Admin users
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	CreateAdmin(ctx context.Context, u *model.AdminUser) error

	Close() error
}
