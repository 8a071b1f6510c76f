package history

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("perfect-menu-labels/print-session"))

// Session groups the log entries of one print batch on one printer.
type Session struct {
	ID          string
	Timestamp   time.Time
	Printer     string
	Initial     string
	LabelHeight int
	ItemNames   []string
	Quantity    int
	LabelKinds  []string
	Entries     []Entry
}

func (s Session) ItemCount() int {
	return len(s.Entries)
}

// sessionKey is exact: entries a nanosecond apart are different sessions.
func sessionKey(e Entry) string {
	return fmt.Sprintf("%d|%s", e.PrintedAt().UnixNano(), e.Details.PrinterUsed.Name)
}

// Group clusters entries sharing printed timestamp and printer name, newest
// session first. It has no side effects and can be recomputed at will.
func Group(entries []Entry) []Session {
	var sessions []Session
	index := map[string]int{}

	for _, e := range entries {
		key := sessionKey(e)
		i, ok := index[key]
		if !ok {
			i = len(sessions)
			index[key] = i
			sessions = append(sessions, Session{
				ID:          uuid.NewSHA1(sessionNamespace, []byte(key)).String(),
				Timestamp:   e.PrintedAt(),
				Printer:     e.Details.PrinterUsed.Name,
				Initial:     e.Details.Initial,
				LabelHeight: e.Details.LabelHeight,
			})
		}
		s := &sessions[i]
		s.Entries = append(s.Entries, e)
		s.Quantity += e.Details.Quantity
		if name := e.Details.ItemName; name != "" && !slices.Contains(s.ItemNames, name) {
			s.ItemNames = append(s.ItemNames, name)
		}
		if kind := strings.ToUpper(strings.TrimSpace(e.Details.LabelType)); kind != "" && !slices.Contains(s.LabelKinds, kind) {
			s.LabelKinds = append(s.LabelKinds, kind)
		}
	}

	slices.SortStableFunc(sessions, func(a, b Session) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return sessions
}

// Find returns the session with the given id or unambiguous id prefix.
func Find(sessions []Session, id string) (Session, error) {
	var (
		match Session
		found int
	)
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
		if id != "" && strings.HasPrefix(s.ID, id) {
			match = s
			found++
		}
	}
	switch found {
	case 0:
		return Session{}, fmt.Errorf("no print session %q", id)
	case 1:
		return match, nil
	default:
		return Session{}, fmt.Errorf("session prefix %q is ambiguous", id)
	}
}
