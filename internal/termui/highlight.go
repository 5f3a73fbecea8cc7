package termui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/mattn/go-isatty"
)

// UseColor decides whether w gets ANSI colours. mode is auto, always or
// never; auto colours terminals unless NO_COLOR is set.
func UseColor(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// HighlightDiff writes diff to w with terminal colours from style.
func HighlightDiff(w io.Writer, diff string, style *chroma.Style) error {
	lexer := lexers.Get("diff")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := lexer.Tokenise(nil, diff)
	if err != nil {
		return fmt.Errorf("tokenise diff: %w", err)
	}
	return formatter.Format(w, style, iterator)
}

// Printer writes diff previews, highlighted when Color is set.
type Printer struct {
	Out   io.Writer
	Color bool
	Style *chroma.Style
}

func (p Printer) Diff(diff string) error {
	if diff == "" {
		return nil
	}
	if !strings.HasSuffix(diff, "\n") {
		diff += "\n"
	}
	if !p.Color || p.Style == nil {
		_, err := io.WriteString(p.Out, diff)
		return err
	}
	return HighlightDiff(p.Out, diff, p.Style)
}
