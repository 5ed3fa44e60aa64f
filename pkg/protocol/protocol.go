// Package protocol defines the newline-delimited wire vocabulary: parsing
// of client command lines and construction of server reply lines.
//
// Every frame is one UTF-8 text line terminated by '\n'. Client commands
// start with a case-insensitive verb; server replies start with a fixed
// uppercase token (OK, PONG, INFO, MSG, USER, DM, DM-SENT, ERR).
package protocol

import (
	"strings"
	"unicode"
)

// Kind discriminates the parsed command variants.
type Kind int

const (
	KindLogin Kind = iota
	KindBroadcast
	KindWho
	KindDirectMessage
	KindPing
	KindUnknown
	KindMalformed
)

// Command is one parsed client line. It is produced fresh per line and
// discarded after dispatch; nothing here is persisted.
type Command struct {
	Kind   Kind
	Name   string // original verb, uppercased (KindUnknown only)
	Target string // DM recipient (KindDirectMessage only)
	Text   string // LOGIN username, MSG text, or DM text
}

// Parse turns one trimmed, non-empty line into a Command.
//
// The line splits on its first run of whitespace into a verb and a
// remainder. LOGIN and MSG take the whole remainder as a single payload,
// whitespace preserved. DM needs a single-token target plus a message.
// WHO and PING ignore any remainder.
func Parse(line string) Command {
	verb, rest := splitToken(line)
	switch strings.ToUpper(verb) {
	case "LOGIN":
		return Command{Kind: KindLogin, Text: rest}
	case "MSG":
		return Command{Kind: KindBroadcast, Text: rest}
	case "WHO":
		return Command{Kind: KindWho}
	case "DM":
		target, text := splitToken(rest)
		if target == "" || text == "" {
			return Command{Kind: KindMalformed}
		}
		return Command{Kind: KindDirectMessage, Target: target, Text: text}
	case "PING":
		return Command{Kind: KindPing}
	default:
		return Command{Kind: KindUnknown, Name: strings.ToUpper(verb)}
	}
}

// splitToken splits s at its first run of whitespace. The remainder keeps
// any internal whitespace intact.
func splitToken(s string) (token, rest string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

// ERR reason tokens.
const (
	ReasonInvalidUsername = "invalid-username"
	ReasonUsernameTaken   = "username-taken"
	ReasonAlreadyLoggedIn = "already-logged-in"
	ReasonNotLoggedIn     = "not-logged-in"
	ReasonInvalidDMFormat = "invalid-dm-format"
)

// Reply constructors. Each returns a single logical line without the
// trailing newline; the transport appends exactly one '\n' per line.

func OK() string   { return "OK" }
func Pong() string { return "PONG" }

// Info builds a server notice line.
func Info(text string) string { return "INFO " + text }

// Chat builds a broadcast message line.
func Chat(sender, text string) string { return "MSG " + sender + " " + text }

// UserEntry builds one WHO result line.
func UserEntry(username string) string { return "USER " + username }

// Direct builds the line delivered to a DM recipient.
func Direct(sender, text string) string { return "DM " + sender + " " + text }

// DirectSent builds the confirmation line returned to a DM sender.
func DirectSent(target string) string { return "DM-SENT " + target }

// Err builds an error line from one of the Reason tokens.
func Err(reason string) string { return "ERR " + reason }

// ErrUserNotFound builds the DM-target-missing error line.
func ErrUserNotFound(target string) string { return "ERR user-not-found " + target }

// ErrUnknownCommand builds the unrecognized-verb error line. The verb is
// reported uppercased.
func ErrUnknownCommand(name string) string { return "ERR unknown-command " + name }
