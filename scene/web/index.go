// ABOUTME: HTML scene index with markdown-rendered descriptions and each scene's deck.
// ABOUTME: Descriptions go through goldmark with raw HTML left unrendered.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
)

var indexTemplate = template.Must(
	template.New("index.html").Funcs(template.FuncMap{
		"markdown": markdownToHTML,
		"timeAgo":  timeAgo,
	}).ParseFS(templateFS, "templates/index.html"),
)

// indexScene is the view-model for one scene on the index page.
type indexScene struct {
	SceneSummaryView
	Deck      string
	DeckError string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var scenes []indexScene
	for _, id := range s.state.ListActorIDs() {
		handle := s.state.GetActor(id)
		if handle == nil {
			continue
		}
		handle.ReadState(func(st *core.SceneState) {
			if st.Core == nil {
				return
			}
			entry := indexScene{SceneSummaryView: summarize(st)}
			if deck, err := export.RenderDeck(st); err != nil {
				entry.DeckError = err.Error()
			} else {
				entry.Deck = deck
			}
			scenes = append(scenes, entry)
		})
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, map[string]any{"Scenes": scenes}); err != nil {
		log.Printf("component=scene.web action=render_failed template=index err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// markdownToHTML converts a markdown string to HTML using goldmark.
// goldmark's default renderer omits raw HTML from the input.
func markdownToHTML(input string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}

// timeAgo formats a time as a relative duration string (e.g. "5m ago").
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
