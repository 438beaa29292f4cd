// Package dialog tracks which single modal dialog is open.
package dialog

import (
	"sync"

	"github.com/atinyakov/mesto/internal/models"
)

// Kind identifies a dialog.
type Kind int

const (
	None Kind = iota
	EditProfile
	EditAvatar
	AddPlace
	ConfirmDelete
	ViewImage
	RegistrationResult
)

var kindNames = [...]string{
	None:               "none",
	EditProfile:        "edit-profile",
	EditAvatar:         "edit-avatar",
	AddPlace:           "add-place",
	ConfirmDelete:      "confirm-delete",
	ViewImage:          "view-image",
	RegistrationResult: "registration-result",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// State is the open dialog and its payload. Card is set only for
// ConfirmDelete and ViewImage, Success only for RegistrationResult.
type State struct {
	Kind    Kind
	Card    *models.Card
	Success bool
}

// Open reports whether a dialog is shown.
func (s State) Open() bool { return s.Kind != None }

// Controller holds the current State. The zero value has no dialog open.
type Controller struct {
	mu    sync.RWMutex
	state State
}

// New returns a Controller with no dialog open.
func New() *Controller { return &Controller{} }

// Open replaces whatever is shown with st.
func (c *Controller) Open(st State) {
	st = normalize(st)
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// normalize drops payload that does not belong to the kind and copies the
// card so callers cannot mutate it afterwards.
func normalize(st State) State {
	out := State{Kind: st.Kind}
	switch st.Kind {
	case ConfirmDelete, ViewImage:
		if st.Card != nil {
			card := st.Card.Clone()
			out.Card = &card
		}
	case RegistrationResult:
		out.Success = st.Success
	}
	return out
}

// CloseAll hides any dialog and forgets the selected card.
func (c *Controller) CloseAll() {
	c.mu.Lock()
	c.state = State{}
	c.mu.Unlock()
}

// CloseIf closes the dialog only if kind is still the open one. It reports
// whether it did.
func (c *Controller) CloseIf(kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Kind != kind {
		return false
	}
	c.state = State{}
	return true
}

// Current returns a copy of the state.
func (c *Controller) Current() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return normalize(c.state)
}

// IsOpen reports whether kind is the open dialog.
func (c *Controller) IsOpen(kind Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Kind == kind
}

func (c *Controller) EditProfile() { c.Open(State{Kind: EditProfile}) }
func (c *Controller) EditAvatar()  { c.Open(State{Kind: EditAvatar}) }
func (c *Controller) AddPlace()    { c.Open(State{Kind: AddPlace}) }

func (c *Controller) ConfirmDelete(card models.Card) {
	c.Open(State{Kind: ConfirmDelete, Card: &card})
}

func (c *Controller) ViewImage(card models.Card) {
	c.Open(State{Kind: ViewImage, Card: &card})
}

func (c *Controller) RegistrationResult(ok bool) {
	c.Open(State{Kind: RegistrationResult, Success: ok})
}
