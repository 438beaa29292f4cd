// Package prompt is the terminal side of the client: it reads form input
// line by line and prints what the app reports.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/mesto/internal/models"
)

// ErrClosed is returned when the input ends in the middle of a form.
var ErrClosed = errors.New("input closed")

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New returns a Prompter over in and out.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line prints label and returns the trimmed answer. ok is false at EOF.
func (p *Prompter) Line(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

func (p *Prompter) ask(label string) (string, error) {
	s, ok := p.Line(label)
	if !ok {
		return "", ErrClosed
	}
	return s, nil
}

// Credentials asks for email and password.
func (p *Prompter) Credentials() (models.Credentials, error) {
	email, err := p.ask("Email: ")
	if err != nil {
		return models.Credentials{}, err
	}
	password, err := p.ask("Password: ")
	if err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{Email: email, Password: password}, nil
}

// NewCard asks for the caption and image link of a place.
func (p *Prompter) NewCard() (models.NewCard, error) {
	name, err := p.ask("Place name: ")
	if err != nil {
		return models.NewCard{}, err
	}
	link, err := p.ask("Image link: ")
	if err != nil {
		return models.NewCard{}, err
	}
	return models.NewCard{Name: name, Link: link}, nil
}

// Profile asks for a new name and bio. An empty answer keeps the current
// value.
func (p *Prompter) Profile(current models.Identity) (models.ProfileUpdate, error) {
	name, err := p.ask(fmt.Sprintf("Name [%s]: ", current.Name))
	if err != nil {
		return models.ProfileUpdate{}, err
	}
	about, err := p.ask(fmt.Sprintf("About [%s]: ", current.About))
	if err != nil {
		return models.ProfileUpdate{}, err
	}
	if name == "" {
		name = current.Name
	}
	if about == "" {
		about = current.About
	}
	return models.ProfileUpdate{Name: name, About: about}, nil
}

// Avatar asks for the avatar link.
func (p *Prompter) Avatar() (string, error) {
	return p.ask("Avatar link: ")
}

// Confirm asks a yes/no question; only "y" and "yes" count as yes.
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.ask(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
