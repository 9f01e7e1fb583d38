package model

import "time"

// Memory is a single timeline entry. Images are ordered by SortOrder.
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
	Images    []*Image  `json:"images"`
}

// Image is a photo attached to exactly one Memory.
type Image struct {
	ID        string    `json:"id"`
	MemoryID  string    `json:"memoryId"`
	Filename  string    `json:"-"`
	URL       string    `json:"url"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Alt       string    `json:"alt"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
}

// MemoryFields carries the editable fields of a Memory. A nil field means
// "not supplied".
type MemoryFields struct {
	Title    *string `json:"title"`
	Date     *string `json:"date"`
	Section  *string `json:"section"`
	Body     *string `json:"body"`
	Location *string `json:"location"`
}

// OrderItem assigns a sort order to one memory or image.
type OrderItem struct {
	ID        string `json:"id" validate:"required"`
	SortOrder int    `json:"sortOrder"`
}
