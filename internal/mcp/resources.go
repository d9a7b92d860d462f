package mcp

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const WidgetMimeType = "text/html+skybridge"

type Widget struct {
	URI         string
	Name        string
	File        string
	Description string
}

// Widgets served to hosts that render structured content.
var Widgets = []Widget{
	{
		URI:         ResultsWidgetURI,
		Name:        "hotel-results-widget",
		File:        "hotel-results.html",
		Description: "Hotel search results with cards, pricing and booking links.",
	},
	{
		URI:         DetailsWidgetURI,
		Name:        "hotel-details-widget",
		File:        "hotel-details.html",
		Description: "Hotel details with photo gallery and amenities.",
	},
}

// Resources reads widget HTML from a directory on every request, so widgets
// can be edited without a restart.
type Resources struct {
	dir     string
	widgets []Widget
}

func NewResources(dir string) *Resources {
	return &Resources{dir: dir, widgets: Widgets}
}

func (r *Resources) List() []map[string]any {
	out := make([]map[string]any, 0, len(r.widgets))
	for _, w := range r.widgets {
		out = append(out, map[string]any{
			"uri":         w.URI,
			"name":        w.Name,
			"description": w.Description,
			"mimeType":    WidgetMimeType,
		})
	}
	return out
}

func (r *Resources) Read(uri string) (map[string]any, error) {
	for _, w := range r.widgets {
		if w.URI != uri {
			continue
		}
		html, err := os.ReadFile(filepath.Join(r.dir, w.File))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn().Str("uri", uri).Str("dir", r.dir).Msg("widget file missing")
				return nil, &RPCError{Code: CodeInvalidParams, Message: "resource unavailable: " + uri}
			}
			return nil, err
		}
		return map[string]any{"contents": []map[string]any{{
			"uri":      w.URI,
			"mimeType": WidgetMimeType,
			"text":     string(html),
			"_meta":    resourceMeta(w),
		}}}, nil
	}
	return nil, &RPCError{Code: CodeInvalidParams, Message: "unknown resource: " + uri}
}

func resourceMeta(w Widget) map[string]any {
	csp := map[string]any{
		"connect_domains":  []string{},
		"resource_domains": []string{"https://www.marriott.com", "https://cache.marriott.com"},
	}
	return map[string]any{
		"openai/widgetDescription":   w.Description,
		"openai/widgetPrefersBorder": true,
		"openai/widgetCSP":           csp,
	}
}
