package client

import "time"

// Memory is one timeline entry as returned by the API.
type Memory struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      *string   `json:"date"`
	Section   string    `json:"section"`
	Body      string    `json:"body"`
	Location  *string   `json:"location"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Images    []Image   `json:"images"`
}

// Image is a photo attached to a memory.
type Image struct {
	ID        string    `json:"id"`
	MemoryID  string    `json:"memoryId"`
	URL       string    `json:"url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Alt       string    `json:"alt"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemoryInput is the body of create and update requests. Nil fields are
// omitted; on update they keep the stored value.
type MemoryInput struct {
	Title    *string `json:"title,omitempty"`
	Date     *string `json:"date,omitempty"`
	Section  *string `json:"section,omitempty"`
	Body     *string `json:"body,omitempty"`
	Location *string `json:"location,omitempty"`
}

// Valentine is the closing message.
type Valentine struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Signature   *string   `json:"signature"`
	TypedEffect bool      `json:"typedEffect"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValentineInput replaces the closing message. Omitted fields reset to
// their defaults on the server.
type ValentineInput struct {
	Title       *string `json:"title,omitempty"`
	Body        *string `json:"body,omitempty"`
	Signature   *string `json:"signature,omitempty"`
	TypedEffect *bool   `json:"typedEffect,omitempty"`
}

// OrderItem assigns a sort order to one memory or image.
type OrderItem struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// User identifies the signed-in admin.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// File is one image to upload.
type File struct {
	Name        string
	ContentType string // sniffed from Data when empty
	Data        []byte
}

// String returns a pointer to s, for building inputs.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
