package ui

import (
	"fmt"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"blac/highlight"
	"blac/model"
)

// renderMarkdown renders prose for the terminal. Autolinks stay disabled so
// the terminal handles plain URLs itself.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width, 0)
	doc := p.Parse([]byte(content))
	return strings.TrimRight(string(gomarkdown.Render(doc, r)), "\n")
}

// renderCode colours code with the highlighter spans and frames it.
func renderCode(code, language string, width int) string {
	lang := highlight.DetectLanguage(code, language)
	coloured := colourSpans(code, highlight.Highlight(code, lang))

	var b strings.Builder
	b.WriteString(CodeFrameStyle.Render("┌─ " + lang))
	b.WriteString("\n")
	for _, line := range strings.Split(coloured, "\n") {
		b.WriteString(CodeFrameStyle.Render("│ "))
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(CodeFrameStyle.Render("└" + strings.Repeat("─", max(width-1, 1))))
	return b.String()
}

// colourSpans applies span styles to code. Each styled piece is rendered per
// line so no style crosses a line break.
func colourSpans(code string, spans []highlight.Span) string {
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if s.Start > pos {
			b.WriteString(code[pos:s.Start])
		}
		style, ok := codeStyles[s.Style]
		pieces := strings.Split(code[s.Start:s.End], "\n")
		for i, piece := range pieces {
			if i > 0 {
				b.WriteString("\n")
			}
			if ok && piece != "" {
				b.WriteString(style.Render(piece))
			} else {
				b.WriteString(piece)
			}
		}
		pos = s.End
	}
	if pos < len(code) {
		b.WriteString(code[pos:])
	}
	return b.String()
}

// renderReply renders an assistant reply: prose through markdown and fenced
// blocks through the highlighter. A code-mode reply without fences is shown
// as one code block.
func renderReply(msg model.ChatMessage, width int) string {
	blocks := highlight.SplitFences(msg.Content)
	if msg.IsCode && !hasCode(blocks) {
		return renderCode(msg.Content, msg.Language, width)
	}

	var parts []string
	for _, blk := range blocks {
		if blk.Code {
			parts = append(parts, renderCode(blk.Text, blk.Language, width))
			continue
		}
		if strings.TrimSpace(blk.Text) == "" {
			continue
		}
		parts = append(parts, renderMarkdown(blk.Text, width))
	}
	return strings.Join(parts, "\n")
}

func hasCode(blocks []highlight.Block) bool {
	for _, b := range blocks {
		if b.Code {
			return true
		}
	}
	return false
}

func formatUserMessage(timestamp, content string, attachments []model.Attachment, width int) string {
	bar := UserStyle.Render("┃")

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", bar, timestamp, UserStyle.Render("You"))
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&b, "%s %s\n", bar, runewidth.Wrap(line, max(width-2, 10)))
	}
	for _, att := range attachments {
		label := fmt.Sprintf("[%s] %s", att.Kind(), att.SourceRef())
		fmt.Fprintf(&b, "%s %s\n", bar, DimStyle.Render(runewidth.Truncate(label, max(width-2, 10), "…")))
	}
	return b.String()
}

// renderTimeline renders the whole log. cache holds rendered replies by
// message ID and is filled as a side effect.
func renderTimeline(msgs []model.ChatMessage, cache map[string]string, width int) string {
	if len(msgs) == 0 {
		return DimStyle.Render("No messages yet. Ask anything, attach an image with Ctrl+O, or dictate with Ctrl+V.")
	}

	var b strings.Builder
	for _, msg := range msgs {
		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))
		if msg.IsUser {
			b.WriteString(formatUserMessage(timestamp, msg.Content, msg.Attachments, width))
			b.WriteString("\n")
			continue
		}

		rendered, ok := cache[msg.ID]
		if !ok {
			rendered = renderReply(msg, width-4)
			cache[msg.ID] = rendered
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), rendered)
	}
	return b.String()
}
