// Package web renders the public timeline as a server-side HTML page.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/leca/ourstory/internal/model"
	"github.com/leca/ourstory/internal/timeline"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"paragraphs": paragraphs,
}

// Source supplies the data shown on the page.
type Source interface {
	ListMemories(ctx context.Context) ([]*model.Memory, error)
	GetMessage(ctx context.Context) (*model.ValentineMessage, error)
}

type page struct {
	Memories  []*model.Memory
	Valentine *model.ValentineMessage
}

// View serves the timeline page.
type View struct {
	src  Source
	tmpl *template.Template
}

func New(src Source) *View {
	tmpl := template.Must(template.New("timeline.html").Funcs(funcs).ParseFS(templateFS, "templates/timeline.html"))
	return &View{src: src, tmpl: tmpl}
}

// Timeline handles GET /.
func (v *View) Timeline(w http.ResponseWriter, r *http.Request) {
	memories, err := v.src.ListMemories(r.Context())
	if err != nil {
		v.fail(w, r, err)
		return
	}
	msg, err := v.src.GetMessage(r.Context())
	if err != nil && !errors.Is(err, timeline.ErrNotFound) {
		v.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := v.tmpl.Execute(&buf, page{Memories: memories, Valentine: msg}); err != nil {
		v.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("writing timeline response", "path", r.URL.Path, "error", err)
	}
}

func (v *View) fail(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("rendering timeline", "path", r.URL.Path, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// paragraphs splits text on blank lines, dropping empty pieces.
func paragraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
