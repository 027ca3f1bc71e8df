package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/opcall/unit"
	"github.com/wippyai/opcall/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// isTerminal reports whether w is a terminal. Buffers and pipes are not.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// painter applies styles only when writing to a terminal.
type painter struct {
	on bool
}

func newPainter(w io.Writer) painter {
	return painter{on: isTerminal(w)}
}

func (p painter) paint(s lipgloss.Style, text string) string {
	if !p.on {
		return text
	}
	return s.Render(text)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// imageJSON is how a unit appears in json output.
type imageJSON struct {
	Refs   []uint64 `json:"refs,omitempty"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Bands  int      `json:"bands"`
}

func unitJSON(u *unit.Unit) imageJSON {
	out := imageJSON{Width: u.Width(), Height: u.Height(), Bands: u.Bands()}
	for _, h := range u.References().Sorted() {
		out.Refs = append(out.Refs, uint64(h))
	}
	return out
}

// jsonValue converts v into something encoding/json renders faithfully.
func jsonValue(v value.Value) any {
	switch v.Kind() {
	case value.KindUnset:
		return nil
	case value.KindInt:
		i, _ := v.AsInt()
		return i
	case value.KindFloat:
		f, _ := v.AsFloat()
		return f
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindString, value.KindEnum:
		s, _ := v.AsString()
		return s
	case value.KindUnit:
		u, _ := v.AsUnit()
		return unitJSON(u)
	case value.KindDoubles:
		d, _ := v.AsDoubles()
		return d
	case value.KindInts:
		i, _ := v.AsInts()
		return i
	case value.KindUnits:
		us, _ := v.AsUnits()
		out := make([]imageJSON, len(us))
		for i, u := range us {
			out[i] = unitJSON(u)
		}
		return out
	case value.KindBlob:
		b, _ := v.AsBlob()
		return map[string]int{"bytes": len(b)}
	case value.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = jsonValue(item)
		}
		return out
	}
	return v.String()
}
