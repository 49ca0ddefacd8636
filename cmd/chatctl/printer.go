package main

import (
	"chat-relay/domain"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gookit/color"
)

// printer serializes terminal output between the prompt and the watcher.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	colours bool
	me      string
}

func newPrinter(w io.Writer, colours bool, me string) *printer {
	return &printer{w: w, colours: colours, me: me}
}

func (p *printer) message(m domain.Message) {
	style := color.New(color.FgCyan)
	author := "them"
	if m.SenderID == p.me {
		style = color.New(color.FgGreen)
		author = "me"
	}
	content := m.Content
	if m.Type == domain.ImageMessage {
		content = "[image] " + content
	}
	p.line(style, "%s %-4s %s", m.CreatedAt.Local().Format(time.TimeOnly), author, content)
}

func (p *printer) info(format string, args ...any) {
	p.line(color.New(color.FgGray), format, args...)
}

func (p *printer) fail(err error) {
	p.line(color.New(color.FgRed, color.OpBold), "error: %v", err)
}

func (p *printer) line(style color.Style, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if p.colours {
		text = style.Render(text)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, text)
}
