package server

import (
	"errors"
	"log/slog"

	"github.com/linechat/linechat/pkg/model"
	"github.com/linechat/linechat/pkg/protocol"
)

// dispatch executes one parsed command against the registry. Protocol
// errors go back to the offending client as ERR lines and never close the
// connection; only LOGIN and PING work before authentication.
func (s *Server) dispatch(sess *Session, cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.KindLogin:
		s.handleLogin(sess, cmd.Text)
	case protocol.KindBroadcast:
		s.handleBroadcast(sess, cmd.Text)
	case protocol.KindWho:
		s.handleWho(sess)
	case protocol.KindDirectMessage:
		s.handleDirect(sess, cmd.Target, cmd.Text)
	case protocol.KindPing:
		s.handlePing(sess)
	case protocol.KindUnknown:
		s.metrics.UnknownCommands.Add(1)
		sess.Sink().WriteLine(protocol.ErrUnknownCommand(cmd.Name))
	case protocol.KindMalformed:
		sess.Sink().WriteLine(protocol.Err(protocol.ReasonInvalidDMFormat))
	}
}

func (s *Server) handleLogin(sess *Session, username string) {
	err := s.registry.Authenticate(sess.ID(), username)
	switch {
	case err == nil:
		s.metrics.LoginsOK.Add(1)
		slog.Info("user logged in", "user", username, "session", sess.ID())
		sess.Sink().WriteLine(protocol.OK())
		s.broadcastInfo(username+" joined", sess.ID())
	case errors.Is(err, model.ErrUsernameInvalid):
		s.metrics.LoginsFailed.Add(1)
		sess.Sink().WriteLine(protocol.Err(protocol.ReasonInvalidUsername))
	case errors.Is(err, model.ErrUsernameTaken):
		s.metrics.LoginsFailed.Add(1)
		sess.Sink().WriteLine(protocol.Err(protocol.ReasonUsernameTaken))
	case errors.Is(err, model.ErrAlreadyLoggedIn):
		s.metrics.LoginsFailed.Add(1)
		sess.Sink().WriteLine(protocol.Err(protocol.ReasonAlreadyLoggedIn))
	default:
		// session vanished mid-dispatch; nothing left to answer
		slog.Debug("login for untracked session", "session", sess.ID())
	}
}

func (s *Server) handleBroadcast(sess *Session, text string) {
	sender, ok := s.requireLogin(sess)
	if !ok {
		return
	}
	s.registry.Touch(sess.ID())
	s.metrics.MessagesBroadcast.Add(1)

	// Full broadcast: the sender hears their own message, unlike the
	// joined/left notices which exclude their subject.
	line := protocol.Chat(sender, text)
	for _, e := range s.registry.Snapshot() {
		if e.Username == "" {
			continue
		}
		e.Sink.WriteLine(line)
	}
}

func (s *Server) handleWho(sess *Session) {
	if _, ok := s.requireLogin(sess); !ok {
		return
	}
	s.registry.Touch(sess.ID())

	// One USER line per authenticated session, caller included, in
	// snapshot order.
	for _, e := range s.registry.Snapshot() {
		if e.Username == "" {
			continue
		}
		sess.Sink().WriteLine(protocol.UserEntry(e.Username))
	}
}

func (s *Server) handleDirect(sess *Session, target, text string) {
	sender, ok := s.requireLogin(sess)
	if !ok {
		return
	}
	s.registry.Touch(sess.ID())

	entry, found := s.registry.FindByUsername(target)
	if !found {
		sess.Sink().WriteLine(protocol.ErrUserNotFound(target))
		return
	}
	s.metrics.DirectMessages.Add(1)
	entry.Sink.WriteLine(protocol.Direct(sender, text))
	sess.Sink().WriteLine(protocol.DirectSent(target))
}

// handlePing refreshes activity and answers PONG. It works before login;
// an untracked session is ignored silently.
func (s *Server) handlePing(sess *Session) {
	if !s.registry.Touch(sess.ID()) {
		return
	}
	sess.Sink().WriteLine(protocol.Pong())
}

// requireLogin resolves the session's username, answering not-logged-in
// when it has none.
func (s *Server) requireLogin(sess *Session) (string, bool) {
	name, ok := s.registry.Username(sess.ID())
	if !ok {
		sess.Sink().WriteLine(protocol.Err(protocol.ReasonNotLoggedIn))
		return "", false
	}
	return name, true
}

// broadcastInfo sends an INFO line to every authenticated session except
// the excluded id (0 excludes nobody). The recipient set is snapshotted
// before any write, so no registry lock is held during I/O and a stalled
// peer cannot block the rest.
func (s *Server) broadcastInfo(text string, exclude uint64) {
	line := protocol.Info(text)
	for _, e := range s.registry.Snapshot() {
		if e.Username == "" || e.ID == exclude {
			continue
		}
		e.Sink.WriteLine(line)
	}
}
