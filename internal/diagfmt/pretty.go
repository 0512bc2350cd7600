package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"biscuit/internal/diag"
	"biscuit/internal/source"
)

type palette struct {
	err, warn, info, note, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgBlue, color.Bold),
		note:   color.New(color.FgCyan),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
		bold:   color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.gutter, p.caret, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	var sb strings.Builder
	for i, d := range bag.Items() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s %s: %s\n",
			location(fs, d.Primary, opts),
			pal.severity(d.Severity).Sprint(d.Severity.String()),
			pal.bold.Sprint(d.Code.ID()),
			d.Message)
		snippet(&sb, fs, d.Primary, opts, pal)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  %s %s: %s\n", pal.note.Sprint("note:"), location(fs, n.Span, opts), n.Msg)
			snippet(&sb, fs, n.Span, PrettyOpts{Width: opts.Width}, pal)
		}
	}
	_, _ = io.WriteString(w, sb.String())
}

// Summary prints the closing line of a build: error and warning counts and
// how many diagnostics the error limit suppressed.
func Summary(w io.Writer, bag *diag.Bag, dropped int, colorize bool) {
	pal := newPalette(colorize)
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	if errs == 0 && warns == 0 && dropped == 0 {
		return
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, pal.err.Sprint(plural(errs, "error")))
	}
	if warns > 0 {
		parts = append(parts, pal.warn.Sprint(plural(warns, "warning")))
	}
	line := strings.Join(parts, ", ")
	if dropped > 0 {
		line += fmt.Sprintf(" (%d more suppressed by the error limit)", dropped)
	}
	fmt.Fprintln(w, strings.TrimSpace(line))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func location(fs *source.FileSet, sp source.Span, opts PrettyOpts) string {
	f := fs.Get(sp.File)
	if f == nil || sp.File == source.NoFileID {
		return noFile
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", displayPath(f, opts.PathMode, opts.BaseDir), start.Line, start.Col)
}

// snippet prints the primary line with its context and an underline. Tabs
// are kept in the underline padding; wide runes take two columns.
func snippet(sb *strings.Builder, fs *source.FileSet, sp source.Span, opts PrettyOpts, pal palette) {
	f := fs.Get(sp.File)
	if f == nil || sp.File == source.NoFileID {
		return
	}
	start, end := fs.Resolve(sp)
	first := start.Line
	if ctx := uint32(max(opts.Context, 0)); first > ctx {
		first -= ctx
	} else {
		first = 1
	}
	gw := len(fmt.Sprint(start.Line))
	for ln := first; ln <= start.Line; ln++ {
		text := clip(f.GetLine(ln), opts.Width)
		fmt.Fprintf(sb, "%s %s\n", pal.gutter.Sprintf("%*d |", gw, ln), text)
	}

	line := f.GetLine(start.Line)
	col := int(start.Col) - 1
	if col > len(line) {
		col = len(line)
	}
	var pad strings.Builder
	for _, r := range line[:col] {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	stop := len(line)
	if end.Line == start.Line {
		stop = min(int(end.Col)-1, len(line))
	}
	width := 1
	if stop > col {
		width = max(runewidth.StringWidth(line[col:stop]), 1)
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(sb, "%s %s%s\n", pal.gutter.Sprint(strings.Repeat(" ", gw)+" |"), pad.String(), pal.caret.Sprint(underline))
}

func clip(line string, width uint8) string {
	if width == 0 || runewidth.StringWidth(line) <= int(width) {
		return line
	}
	return runewidth.Truncate(line, int(width), "…")
}
