package models

// View is a navigation target. The presentation layer decides how a view is
// shown; the client only names it.
type View string

const (
	// ViewHome is the card feed.
	ViewHome View = "home"
	// ViewLogin is the sign-in form.
	ViewLogin View = "login"
	// ViewRegister is the sign-up form.
	ViewRegister View = "register"
)
