package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/client/app"
	"github.com/atinyakov/mesto/internal/client/dialog"
	"github.com/atinyakov/mesto/internal/models"
)

// Terminal prints navigation, dialog changes and surfaced errors. It
// implements app.Observer.
type Terminal struct {
	out io.Writer

	mu     sync.Mutex
	dialog dialog.State
	err    error
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Navigate(v models.View) {
	fmt.Fprintf(t.out, "-> %s\n", v)
}

// StateChanged prints only what changed since the previous state.
func (t *Terminal) StateChanged(st app.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st.Err != nil && st.Err != t.err {
		fmt.Fprintf(t.out, "! %s\n", describe(st.Err))
	}
	t.err = st.Err

	if st.Dialog.Kind != t.dialog.Kind || st.Dialog.Success != t.dialog.Success {
		if line := dialogLine(st.Dialog); line != "" {
			fmt.Fprintln(t.out, line)
		}
	}
	t.dialog = st.Dialog
}

// describe turns a classified failure into a user-facing line.
func describe(err error) string {
	var msg string
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		return "not authorized: " + orDefault(msg, "please sign in again")
	case api.KindValidation:
		return "invalid input: " + orDefault(msg, err.Error())
	case api.KindNotFound:
		return "not found: the card no longer exists, list refreshed"
	case api.KindNetwork:
		return "network error, try again"
	default:
		return "something went wrong: " + orDefault(msg, err.Error())
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func dialogLine(st dialog.State) string {
	switch st.Kind {
	case dialog.EditProfile:
		return "[edit profile]"
	case dialog.EditAvatar:
		return "[edit avatar]"
	case dialog.AddPlace:
		return "[new place]"
	case dialog.ConfirmDelete:
		return fmt.Sprintf("[delete %q? type 'yes' to confirm, 'close' to cancel]", st.Card.Name)
	case dialog.ViewImage:
		return fmt.Sprintf("[%s] %s", st.Card.Name, st.Card.Link)
	case dialog.RegistrationResult:
		if st.Success {
			return "[registered! close this message to sign in]"
		}
		return "[something went wrong, try again]"
	}
	return ""
}

// PrintCards lists cards with like counts, marking the user's likes and
// own cards.
func PrintCards(w io.Writer, cards []models.Card, userID string) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "no places yet")
		return
	}
	for _, c := range cards {
		var marks []string
		if c.LikedBy(userID) {
			marks = append(marks, "liked")
		}
		if c.OwnedBy(userID) {
			marks = append(marks, "yours")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " (" + strings.Join(marks, ", ") + ")"
		}
		fmt.Fprintf(w, "%s  %-30s  ♥ %d%s\n", c.ID, c.Name, c.LikeCount(), suffix)
	}
}

// PrintProfile prints the signed-in identity.
func PrintProfile(w io.Writer, id *models.Identity) {
	if id == nil {
		fmt.Fprintln(w, "not signed in")
		return
	}
	fmt.Fprintf(w, "%s <%s>\n%s\navatar: %s\n", id.Name, id.Email, id.About, id.Avatar)
}
