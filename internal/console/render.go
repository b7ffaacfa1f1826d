package console

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"ai-chatbot-client/internal/entity"

	"github.com/fatih/color"
)

const DefaultWidth = 80

var (
	botLabel    = color.New(color.FgCyan, color.Bold)
	userLabel   = color.New(color.FgGreen, color.Bold)
	dim         = color.New(color.Faint)
	failure     = color.New(color.FgRed)
	highlighted = color.New(color.FgYellow, color.Bold)
)

// RenderThreads prints the thread list newest first, numbered from 1. The
// selected thread is starred.
func RenderThreads(w io.Writer, threads []entity.ChatThread, selected *entity.ChatThread) {
	if len(threads) == 0 {
		dim.Fprintln(w, "No threads yet. Type a message to start one.")
		return
	}
	for i, t := range threads {
		marker := " "
		if selected != nil && selected.Id == t.Id {
			marker = "*"
		}
		line := fmt.Sprintf("%s %2d. %s", marker, i+1, title(t))
		if marker == "*" {
			highlighted.Fprint(w, line)
		} else {
			fmt.Fprint(w, line)
		}
		dim.Fprintf(w, "  #%d %s\n", t.Id, formatTime(t))
	}
}

// RenderMessages prints a conversation. Bot replies sit on the left, the
// user's messages are right-aligned within width.
func RenderMessages(w io.Writer, messages []entity.ChatMessage, width int) {
	if len(messages) == 0 {
		dim.Fprintln(w, "No messages in this thread.")
		return
	}
	for _, m := range messages {
		RenderMessage(w, m, width)
	}
}

func RenderMessage(w io.Writer, m entity.ChatMessage, width int) {
	if width <= 0 {
		width = DefaultWidth
	}
	lines := wrap(m.Message, width*3/4)

	if m.IsBotReply() {
		botLabel.Fprintln(w, "bot")
		for _, l := range lines {
			fmt.Fprintln(w, "  "+l)
		}
		return
	}

	userLabel.Fprintln(w, pad("you", width))
	for _, l := range lines {
		fmt.Fprintln(w, pad(l, width))
	}
}

func RenderFailure(w io.Writer, message string) {
	failure.Fprintf(w, "! %s\n", message)
}

func title(t entity.ChatThread) string {
	if strings.TrimSpace(t.Title) == "" {
		return "(untitled)"
	}
	return t.Title
}

func formatTime(t entity.ChatThread) string {
	if t.CreatedAt.IsZero() {
		return ""
	}
	return t.CreatedAt.Local().Format("2006-01-02 15:04")
}

// pad right-aligns s in width columns.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

// wrap breaks text on spaces into lines of at most width runes. Existing line
// breaks are kept; words longer than width are not split.
func wrap(text string, width int) []string {
	if width <= 0 {
		return strings.Split(text, "\n")
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) > width {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return out
}
