// Package output renders command results for terminals, pipes, and scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto" // TTY=text, non-TTY=markdown
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// Style renders a string with terminal attributes. In markdown and
// non-color environments it is the identity function.
type Style func(string) string

// Styles groups the named styles a command may ask for.
type Styles struct {
	Header  Style
	Bold    Style
	Muted   Style
	Success Style
	Error   Style
	Warning Style
	Info    Style
	Hint    Style
	Path    Style
}

// Renderer writes command output in the effective mode. It is created once
// per command invocation and is not safe for concurrent use.
type Renderer struct {
	out     io.Writer
	errOut  io.Writer
	mode    Mode
	styles  *Styles
	profile termenv.Profile
}

// NewRenderer creates a renderer for the given writers and mode. ModeAuto
// resolves to text when out is a terminal and markdown otherwise.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	r := &Renderer{out: out, errOut: errOut, mode: resolveMode(out, mode)}
	r.profile = termenv.Ascii
	if r.mode == ModeText && isTerminal(out) {
		r.profile = termenv.NewOutput(out).Profile
	}
	r.styles = buildStyles(r.profile)
	return r
}

func resolveMode(out io.Writer, mode Mode) Mode {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
		return mode
	}
	if isTerminal(out) {
		return ModeText
	}
	return ModeMarkdown
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func buildStyles(p termenv.Profile) *Styles {
	color := func(c string, bold bool) Style {
		return func(s string) string {
			st := p.String(s).Foreground(p.Color(c))
			if bold {
				st = st.Bold()
			}
			return st.String()
		}
	}
	return &Styles{
		Header:  color("14", true),
		Bold:    func(s string) string { return p.String(s).Bold().String() },
		Muted:   color("8", false),
		Success: color("10", false),
		Error:   color("9", true),
		Warning: color("11", false),
		Info:    color("12", false),
		Hint:    color("8", false),
		Path:    color("13", true),
	}
}

// EffectiveMode reports the resolved mode (never ModeAuto).
func (r *Renderer) EffectiveMode() Mode { return r.mode }

// Styles returns the style set for the active profile.
func (r *Renderer) Styles() *Styles { return r.styles }

// Writer returns the primary output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// ErrWriter returns the error output writer.
func (r *Renderer) ErrWriter() io.Writer { return r.errOut }

// Println writes a line to the primary writer.
func (r *Renderer) Println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// Printf writes formatted text to the primary writer.
func (r *Renderer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Success prints a success line, styled in text mode.
func (r *Renderer) Success(msg string) {
	if r.mode == ModeText {
		r.Println(r.styles.Success("✓ " + msg))
		return
	}
	r.Println(msg)
}

// Errorf prints an error line to the error writer.
func (r *Renderer) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.mode == ModeText {
		msg = r.styles.Error(msg)
	}
	_, _ = fmt.Fprintln(r.errOut, msg)
}

// JSON encodes v as indented JSON to the primary writer.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewTable returns a table writer configured for the effective mode:
// a light box style for terminals, markdown rendering otherwise.
func (r *Renderer) NewTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	if r.mode == ModeText {
		t.SetStyle(table.StyleLight)
		t.Style().Format.Header = text.FormatDefault
	}
	return t
}

// RenderTable writes the table in the effective mode.
func (r *Renderer) RenderTable(t table.Writer) {
	if r.mode == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
