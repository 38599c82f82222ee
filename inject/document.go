package inject

import (
	"html"
	"io"
	"regexp"
	"strings"
	"sync"
)

// Document is an Environment that builds an HTML page. Scripts appear in
// the page in activation order; a browser executes non-async scripts in
// document order, so a reference script counts as loaded once appended.
type Document struct {
	mu      sync.Mutex
	Title   string
	scripts []string
}

var _ Environment = (*Document)(nil)

// NewDocument returns an empty page.
func NewDocument(title string) *Document {
	return &Document{Title: title}
}

func (d *Document) Inline(text string) error {
	d.append("<script>" + escapeScript(text) + "</script>")
	return nil
}

func (d *Document) Reference(url string, loaded func(error)) error {
	d.append(`<script src="` + html.EscapeString(url) + `"></script>`)
	loaded(nil)
	return nil
}

func (d *Document) append(tag string) {
	d.mu.Lock()
	d.scripts = append(d.scripts, tag)
	d.mu.Unlock()
}

// Scripts returns the script tags appended so far.
func (d *Document) Scripts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.scripts))
	copy(out, d.scripts)
	return out
}

// Render writes the page to w.
func (d *Document) Render(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	if d.Title != "" {
		sb.WriteString("<title>" + html.EscapeString(d.Title) + "</title>\n")
	}
	for _, s := range d.Scripts() {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
	sb.WriteString("</head>\n<body></body>\n</html>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

var scriptClose = regexp.MustCompile(`(?i)</(script)`)

// escapeScript keeps inline text from terminating its script element early.
// The tag name matches in any case.
func escapeScript(text string) string {
	return strings.ReplaceAll(scriptClose.ReplaceAllString(text, `<\/$1`), "<!--", `<\!--`)
}
