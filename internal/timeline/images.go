package timeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/leca/ourstory/internal/imageproc"
	"github.com/leca/ourstory/internal/model"
	"github.com/leca/ourstory/internal/storage"
)

// Upload is one file received for attachment to a memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type checkedUpload struct {
	Upload
	ext           string
	width, height int
}

// AttachImage stores one image and records it at the end of the memory's images.
func (s *Service) AttachImage(ctx context.Context, memoryID string, u Upload) (*model.Image, error) {
	imgs, err := s.AttachImages(ctx, memoryID, []Upload{u})
	if err != nil {
		return nil, err
	}
	return imgs[0], nil
}

// AttachImages validates every upload first, then stores and records them in
// order. If any upload is rejected nothing is stored. A storage or database
// failure part way through keeps the images already attached; they are
// returned together with the error.
func (s *Service) AttachImages(ctx context.Context, memoryID string, uploads []Upload) ([]*model.Image, error) {
	exists, err := s.db.MemoryExists(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, newError(ErrNotFound, "Memory not found")
	}

	checked := make([]checkedUpload, 0, len(uploads))
	for _, u := range uploads {
		p, err := s.check(u)
		if err != nil {
			return nil, err
		}
		checked = append(checked, p)
	}

	images := make([]*model.Image, 0, len(checked))
	for _, p := range checked {
		img, err := s.storeImage(ctx, memoryID, p)
		if err != nil {
			return images, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *Service) check(u Upload) (checkedUpload, error) {
	if int64(len(u.Data)) > s.maxFileSize {
		return checkedUpload{}, newError(ErrPayloadTooLarge, "File too large")
	}
	if !imageproc.Allowed(u.ContentType) {
		return checkedUpload{}, newError(ErrUnsupportedType, "Only image files are allowed")
	}
	w, h, err := imageproc.Inspect(u.Data, u.ContentType)
	if errors.Is(err, imageproc.ErrTooManyPixels) {
		return checkedUpload{}, &Error{Kind: ErrPayloadTooLarge, Msg: "Image dimensions too large", Detail: err}
	}
	if err != nil {
		return checkedUpload{}, &Error{Kind: ErrUnsupportedType, Msg: "Failed to process image", Detail: err}
	}
	return checkedUpload{
		Upload: u,
		ext:    imageproc.ExtensionFor(u.ContentType, u.Filename),
		width:  w,
		height: h,
	}, nil
}

func (s *Service) storeImage(ctx context.Context, memoryID string, p checkedUpload) (*model.Image, error) {
	name := uuid.NewString() + p.ext
	if _, err := s.files.Store(ctx, name, bytes.NewReader(p.Data)); err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	img := &model.Image{
		ID:        uuid.NewString(),
		MemoryID:  memoryID,
		Filename:  name,
		URL:       "/uploads/" + name,
		Width:     p.width,
		Height:    p.height,
		Alt:       "",
		CreatedAt: s.timestamp(),
	}
	if err := s.db.CreateImage(ctx, img); err != nil {
		if derr := s.files.Delete(ctx, name); derr != nil {
			slog.Error("failed to remove orphaned upload", "file", name, "error", derr)
		}
		return nil, err
	}
	return img, nil
}

// DeleteImage removes the stored file and then the record. The pair must match.
func (s *Service) DeleteImage(ctx context.Context, memoryID, imageID string) error {
	img, err := s.db.GetImage(ctx, memoryID, imageID)
	if err != nil {
		return notFound(err, "Image not found")
	}
	if err := s.files.Delete(ctx, img.Filename); err != nil {
		return fmt.Errorf("removing %s: %w", img.Filename, err)
	}
	if err := s.db.DeleteImage(ctx, memoryID, imageID); err != nil {
		return notFound(err, "Image not found")
	}
	return nil
}

// ReorderImages applies sort orders to images of one memory. Ids belonging
// to other memories are ignored.
func (s *Service) ReorderImages(ctx context.Context, memoryID string, items []model.OrderItem) error {
	if err := s.validateOrder(items); err != nil {
		return err
	}
	return s.db.ReorderImages(ctx, memoryID, items)
}

// UpdateImageAlt sets the caption of one image.
func (s *Service) UpdateImageAlt(ctx context.Context, memoryID, imageID, alt string) (*model.Image, error) {
	if err := s.db.UpdateImageAlt(ctx, memoryID, imageID, alt); err != nil {
		return nil, notFound(err, "Image not found")
	}
	img, err := s.db.GetImage(ctx, memoryID, imageID)
	if err != nil {
		return nil, notFound(err, "Image not found")
	}
	return img, nil
}

// OpenUpload opens a stored file by name for serving.
func (s *Service) OpenUpload(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		return nil, "", validationError("Invalid filename")
	}
	rc, err := s.files.Retrieve(ctx, filename)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		return nil, "", &Error{Kind: ErrValidation, Msg: "Invalid filename", Detail: err}
	case errors.Is(err, storage.ErrNotFound):
		return nil, "", &Error{Kind: ErrNotFound, Msg: "File not found", Detail: err}
	case err != nil:
		return nil, "", err
	}
	return rc, imageproc.ContentTypeForName(filename), nil
}
