package server

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linechat/linechat/pkg/model"
)

func TestRegisterStartsUnauthenticated(t *testing.T) {
	r := NewRegistry()
	sess := r.Register(&memSink{})

	if sess.ID() == 0 {
		t.Fatal("Register: id must be non-zero")
	}
	if _, ok := r.Username(sess.ID()); ok {
		t.Fatal("Username: new session must not have a name")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestAuthenticate(t *testing.T) {
	r := NewRegistry()
	sess := r.Register(&memSink{})

	if err := r.Authenticate(sess.ID(), "alice"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	name, ok := r.Username(sess.ID())
	if !ok || name != "alice" {
		t.Fatalf("Username = %q, %t; want alice, true", name, ok)
	}
}

func TestAuthenticateInvalidName(t *testing.T) {
	r := NewRegistry()
	sess := r.Register(&memSink{})

	for _, name := range []string{"", " ", "\t", "  \t "} {
		if err := r.Authenticate(sess.ID(), name); err != model.ErrUsernameInvalid {
			t.Errorf("Authenticate(%q) = %v, want ErrUsernameInvalid", name, err)
		}
	}
	if _, ok := r.Username(sess.ID()); ok {
		t.Fatal("invalid LOGIN attempts must not mutate the session")
	}
}

func TestAuthenticateTaken(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&memSink{})
	b := r.Register(&memSink{})

	if err := r.Authenticate(a.ID(), "alice"); err != nil {
		t.Fatalf("Authenticate a: %v", err)
	}
	if err := r.Authenticate(b.ID(), "alice"); err != model.ErrUsernameTaken {
		t.Fatalf("Authenticate b = %v, want ErrUsernameTaken", err)
	}
	if _, ok := r.Username(b.ID()); ok {
		t.Fatal("failed LOGIN must not mutate the losing session")
	}
}

func TestAuthenticateIsCaseSensitive(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&memSink{})
	b := r.Register(&memSink{})

	if err := r.Authenticate(a.ID(), "Alice"); err != nil {
		t.Fatalf("Authenticate Alice: %v", err)
	}
	if err := r.Authenticate(b.ID(), "alice"); err != nil {
		t.Fatalf("Authenticate alice: %v (uniqueness is exact-match)", err)
	}
}

func TestAuthenticateTwice(t *testing.T) {
	r := NewRegistry()
	sess := r.Register(&memSink{})

	if err := r.Authenticate(sess.ID(), "alice"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := r.Authenticate(sess.ID(), "alice2"); err != model.ErrAlreadyLoggedIn {
		t.Fatalf("second Authenticate = %v, want ErrAlreadyLoggedIn", err)
	}
	name, _ := r.Username(sess.ID())
	if name != "alice" {
		t.Fatalf("username changed to %q; must be immutable", name)
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	r := NewRegistry()
	if err := r.Authenticate(42, "ghost"); err != model.ErrSessionNotFound {
		t.Fatalf("Authenticate = %v, want ErrSessionNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	anon := r.Register(&memSink{})
	named := r.Register(&memSink{})
	if err := r.Authenticate(named.ID(), "bob"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if name, ok := r.Remove(anon.ID()); !ok || name != "" {
		t.Fatalf("Remove(anon) = %q, %t; want \"\", true", name, ok)
	}
	if name, ok := r.Remove(named.ID()); !ok || name != "bob" {
		t.Fatalf("Remove(named) = %q, %t; want bob, true", name, ok)
	}
	if _, ok := r.Remove(named.ID()); ok {
		t.Fatal("second Remove must report the session as gone")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestFindByUsername(t *testing.T) {
	r := NewRegistry()
	sess := r.Register(&memSink{})
	if err := r.Authenticate(sess.ID(), "carol"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	e, ok := r.FindByUsername("carol")
	if !ok || e.ID != sess.ID() {
		t.Fatalf("FindByUsername(carol) = %+v, %t", e, ok)
	}
	if _, ok := r.FindByUsername("Carol"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
	if _, ok := r.FindByUsername("nobody"); ok {
		t.Fatal("lookup of absent name must fail")
	}
}

func TestSnapshotOrderedByUsername(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"mallory", "alice", "bob"} {
		sess := r.Register(&memSink{})
		if err := r.Authenticate(sess.ID(), name); err != nil {
			t.Fatalf("Authenticate %s: %v", name, err)
		}
	}
	r.Register(&memSink{}) // unauthenticated straggler

	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("Snapshot len = %d, want 4", len(snap))
	}
	want := []string{"", "alice", "bob", "mallory"}
	for i, e := range snap {
		if e.Username != want[i] {
			t.Fatalf("Snapshot[%d].Username = %q, want %q", i, e.Username, want[i])
		}
	}
}

func TestExpireOlderThan(t *testing.T) {
	clock := newFakeClock()
	r := newRegistryWithClock(clock.Now)

	stale := r.Register(&memSink{})
	if err := r.Authenticate(stale.ID(), "stale"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	anon := r.Register(&memSink{}) // unauthenticated, equally old

	clock.Advance(2 * time.Minute)
	fresh := r.Register(&memSink{})
	if err := r.Authenticate(fresh.ID(), "fresh"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	expired := r.ExpireOlderThan(clock.Now().Add(-time.Minute))
	if len(expired) != 1 || expired[0].ID != stale.ID() {
		t.Fatalf("ExpireOlderThan = %+v, want only the stale session", expired)
	}

	// Touch rescues the stale session from the next sweep.
	if !r.Touch(stale.ID()) {
		t.Fatal("Touch: session should still be tracked")
	}
	if got := r.ExpireOlderThan(clock.Now().Add(-time.Minute)); len(got) != 0 {
		t.Fatalf("ExpireOlderThan after Touch = %+v, want none", got)
	}

	_ = anon
}

func TestConcurrentDistinctLogins(t *testing.T) {
	const n = 32
	r := NewRegistry()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		sess := r.Register(&memSink{})
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			errs[i] = r.Authenticate(id, fmt.Sprintf("user-%d", i))
		}(i, sess.ID())
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Authenticate user-%d: %v", i, err)
		}
	}
}

func TestConcurrentSameNameLogin(t *testing.T) {
	const n = 32
	r := NewRegistry()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		sess := r.Register(&memSink{})
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			errs[i] = r.Authenticate(id, "highlander")
		}(i, sess.ID())
	}
	wg.Wait()

	var wins, taken int
	for _, err := range errs {
		switch err {
		case nil:
			wins++
		case model.ErrUsernameTaken:
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || taken != n-1 {
		t.Fatalf("wins = %d, taken = %d; want exactly one winner", wins, taken)
	}
}
