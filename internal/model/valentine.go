package model

import (
	"strings"
	"time"
)

// ValentineID is the fixed primary key of the singleton message row.
const ValentineID = 1

const (
	DefaultValentineTitle     = "Happy Valentine's ❤️"
	DefaultValentineBody      = "Forever with you..."
	DefaultValentineSignature = "— Us"
)

// ValentineMessage is the singleton closing message shown under the timeline.
type ValentineMessage struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Signature   *string   `json:"signature"`
	TypedEffect bool      `json:"typedEffect"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InitialValentine is the row written when the database is first initialized.
func InitialValentine(now time.Time) *ValentineMessage {
	sig := DefaultValentineSignature
	return &ValentineMessage{
		Title:       DefaultValentineTitle,
		Body:        DefaultValentineBody,
		Signature:   &sig,
		TypedEffect: true,
		UpdatedAt:   now,
	}
}

// ValentineFields is an update request for the singleton message.
type ValentineFields struct {
	Title       *string `json:"title"`
	Body        *string `json:"body"`
	Signature   *string `json:"signature"`
	TypedEffect *bool   `json:"typedEffect"`
}

// Apply builds the full replacement message. Unlike memory updates, a field
// that is omitted or empty resets to its default rather than keeping the
// stored value: title and body fall back to the default text, signature is
// cleared and typedEffect turns off.
func (f ValentineFields) Apply(now time.Time) *ValentineMessage {
	msg := &ValentineMessage{
		Title:     DefaultValentineTitle,
		Body:      DefaultValentineBody,
		UpdatedAt: now,
	}
	if f.Title != nil && strings.TrimSpace(*f.Title) != "" {
		msg.Title = *f.Title
	}
	if f.Body != nil && strings.TrimSpace(*f.Body) != "" {
		msg.Body = *f.Body
	}
	if f.Signature != nil && *f.Signature != "" {
		sig := *f.Signature
		msg.Signature = &sig
	}
	if f.TypedEffect != nil {
		msg.TypedEffect = *f.TypedEffect
	}
	return msg
}
