package projections

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in descriptions is dropped because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts an activity description to HTML.
// Conversion errors fall back to an empty string and are logged.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		slog.Warn("markdown_render_failed", "error", err)
		return ""
	}
	return buf.String()
}
