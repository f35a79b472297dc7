package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"lifecoach/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#78909C")
	destructive = lipgloss.Color("#e53935")
	info        = lipgloss.Color("#2196F3")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	metaStyle   = lipgloss.NewStyle().Foreground(muted).Italic(true)
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(info)
	coachStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	errorStyle  = lipgloss.NewStyle().Foreground(destructive)
	promptStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
)

// renderer prints pipeline output. In plain mode nothing is styled, which is
// what scripts and tests see.
type renderer struct {
	out   io.Writer
	plain bool
	md    *glamour.TermRenderer
}

func newRenderer(out io.Writer, plain bool) *renderer {
	r := &renderer{out: out, plain: plain}
	if !plain {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			r.md = md
		}
	}
	return r
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

func (r *renderer) markdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Banner introduces an interactive chat.
func (r *renderer) Banner(user, backend string, archiving bool) {
	fmt.Fprintln(r.out, r.style(titleStyle, "lifecoach"))
	memory := "off"
	if archiving {
		memory = "on"
	}
	fmt.Fprintln(r.out, r.style(metaStyle, fmt.Sprintf("user %s · store %s · memory %s · /quit to leave", user, backend, memory)))
}

// Prompt marks where the user types.
func (r *renderer) Prompt() {
	fmt.Fprint(r.out, r.style(promptStyle, "> "))
}

// Reply prints one pipeline response.
func (r *renderer) Reply(resp types.PipelineResponse) {
	fmt.Fprintln(r.out, r.markdown(resp.Text))
	fmt.Fprintln(r.out, r.style(metaStyle, replyMeta(resp)))
}

func replyMeta(resp types.PipelineResponse) string {
	cats := make([]string, len(resp.Categories))
	for i, c := range resp.Categories {
		cats[i] = string(c)
	}
	if len(cats) == 0 {
		cats = []string{string(resp.Category)}
	}
	meta := fmt.Sprintf("[%s · %s · %v]", strings.Join(cats, "+"), resp.Method, resp.Duration.Round(time.Millisecond))
	if resp.Classification.IsFollowUp {
		meta += " follow-up"
	}
	return meta
}

// Messages prints a stored conversation.
func (r *renderer) Messages(msgs []types.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, r.style(metaStyle, "No messages."))
		return
	}
	for _, m := range msgs {
		label := r.style(userStyle, "you")
		if m.Role == types.RoleAssistant {
			name := "coach"
			if m.Category != "" {
				name += " (" + string(m.Category) + ")"
			}
			label = r.style(coachStyle, name)
		}
		ts := ""
		if !m.Timestamp.IsZero() {
			ts = " " + r.style(metaStyle, m.Timestamp.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(r.out, "%s%s\n%s\n\n", label, ts, m.Content)
	}
}

// Records prints archived exchanges.
func (r *renderer) Records(recs []types.ScoredRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(r.out, r.style(metaStyle, "Nothing archived yet."))
		return
	}
	for i, rec := range recs {
		p := rec.Payload
		head := fmt.Sprintf("%d. [%s] %s", i+1, p.Category, p.Reason)
		fmt.Fprintln(r.out, r.style(titleStyle, head))
		fmt.Fprintln(r.out, r.style(metaStyle, fmt.Sprintf("score %.3f · %s", rec.Score, p.Timestamp.Local().Format("2006-01-02"))))
		fmt.Fprintf(r.out, "  you: %s\n\n", p.Message)
	}
}

// Notice prints a one-line status message.
func (r *renderer) Notice(msg string) {
	fmt.Fprintln(r.out, r.style(metaStyle, msg))
}

// Error prints a non-fatal error inside the chat loop.
func (r *renderer) Error(err error) {
	fmt.Fprintln(r.out, r.style(errorStyle, "error: "+err.Error()))
}

func writeCounts(sb *strings.Builder, title string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(sb, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %-12s %d\n", k, counts[k])
	}
}
