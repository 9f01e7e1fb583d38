package handler

import (
	"errors"
	"io"
	"log"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leca/ourstory/internal/api"
	"github.com/leca/ourstory/internal/model"
	"github.com/leca/ourstory/internal/timeline"
)

// maxFilesPerUpload bounds how many files one multipart request may carry.
const maxFilesPerUpload = 20

type uploadResponse struct {
	Images []*model.Image `json:"images"`
}

type altRequest struct {
	Alt *string `json:"alt"`
}

// ServeUpload handles GET /uploads/{filename}.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.Timeline.OpenUpload(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=2592000")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		log.Printf("ServeUpload: failed to stream response: %v", err)
	}
}

// UploadImages handles POST /uploads/{memoryId}/images. Every file part is
// taken regardless of its field name.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	memoryID := chi.URLParam(r, "memoryId")
	maxFile := h.Timeline.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*maxFilesPerUpload+maxJSONBody)

	uploads, err := readUploads(r, maxFile)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			api.TooLarge(w, "File too large")
			return
		}
		api.WriteError(w, r, err)
		return
	}

	images, err := h.Timeline.AttachImages(r.Context(), memoryID, uploads)
	if err != nil {
		if len(images) > 0 {
			slog.Warn("upload failed after attaching some images",
				"memory_id", memoryID, "attached", len(images), "requested", len(uploads))
		}
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, uploadResponse{Images: images})
}

// readUploads streams the multipart body, reading at most maxFile+1 bytes
// per file so an oversized part is detected without buffering all of it.
func readUploads(r *http.Request, maxFile int64) ([]timeline.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, &timeline.Error{Kind: timeline.ErrValidation, Msg: "Expected multipart form data", Detail: err}
	}

	uploads := []timeline.Upload{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return uploads, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}
		if len(uploads) == maxFilesPerUpload {
			part.Close()
			return nil, &timeline.Error{Kind: timeline.ErrValidation, Msg: "Too many files"}
		}

		data, err := io.ReadAll(io.LimitReader(part, maxFile+1))
		part.Close()
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > maxFile {
			return nil, &timeline.Error{Kind: timeline.ErrPayloadTooLarge, Msg: "File too large"}
		}

		ct := part.Header.Get("Content-Type")
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			ct = mt
		}
		uploads = append(uploads, timeline.Upload{
			Filename:    part.FileName(),
			ContentType: ct,
			Data:        data,
		})
	}
}

// DeleteImage handles DELETE /uploads/{memoryId}/images/{imageId}.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	err := h.Timeline.DeleteImage(r.Context(), chi.URLParam(r, "memoryId"), chi.URLParam(r, "imageId"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteMessage(w, "Image deleted")
}

// ReorderImages handles PUT /uploads/{memoryId}/images/reorder.
func (h *Handler) ReorderImages(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.BadRequest(w, "Order must be an array")
		return
	}
	if err := h.Timeline.ReorderImages(r.Context(), chi.URLParam(r, "memoryId"), req.Order); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteMessage(w, "Images reordered")
}

// UpdateImage handles PUT /uploads/{memoryId}/images/{imageId}, which edits
// the caption.
func (h *Handler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	var req altRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Alt == nil {
		api.BadRequest(w, "Alt text is required")
		return
	}
	img, err := h.Timeline.UpdateImageAlt(r.Context(), chi.URLParam(r, "memoryId"), chi.URLParam(r, "imageId"), *req.Alt)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, img)
}
