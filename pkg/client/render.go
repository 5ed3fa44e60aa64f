package client

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/fatih/color"
)

// renderer styles server messages by their leading token. Colors degrade
// to plain text automatically on non-TTY output.
type renderer struct {
	info   *color.Color
	sender *color.Color
	dm     *color.Color
	user   *color.Color
	errc   *color.Color
	ok     *color.Color
}

func newRenderer() *renderer {
	return &renderer{
		info:   color.New(color.FgCyan),
		sender: color.New(color.FgWhite, color.Bold),
		dm:     color.New(color.FgMagenta),
		user:   color.New(color.FgGreen),
		errc:   color.New(color.FgRed, color.Bold),
		ok:     color.New(color.FgGreen, color.Bold),
	}
}

// render prints one server line, styled by its token.
func (r *renderer) render(w io.Writer, line string) {
	token, rest := splitToken(line)
	switch token {
	case "OK", "PONG":
		_, _ = r.ok.Fprintln(w, token)
	case "INFO":
		_, _ = r.info.Fprintf(w, "* %s\n", rest)
	case "MSG":
		sender, text := splitToken(rest)
		_, _ = r.sender.Fprintf(w, "<%s>", sender)
		_, _ = fmt.Fprintf(w, " %s\n", text)
	case "DM":
		sender, text := splitToken(rest)
		_, _ = r.dm.Fprintf(w, "[%s -> you] %s\n", sender, text)
	case "DM-SENT":
		_, _ = r.dm.Fprintf(w, "[you -> %s] delivered\n", rest)
	case "USER":
		_, _ = r.user.Fprintf(w, "- %s\n", rest)
	case "ERR":
		_, _ = r.errc.Fprintf(w, "error: %s\n", rest)
	default:
		_, _ = fmt.Fprintln(w, line)
	}
}

func splitToken(s string) (token, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
