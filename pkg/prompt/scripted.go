package prompt

import (
	"bytes"
	"fmt"
	"io"
)

// Scripted is a UI that answers questions from a fixed list and records
// everything written to it. Running out of answers behaves like a closed
// stdin.
type Scripted struct {
	answers []string
	Out     bytes.Buffer
	Asked   []string
}

// NewScripted creates a Scripted UI with the given answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Println(a ...any) { fmt.Fprintln(&s.Out, a...) }

func (s *Scripted) Printf(format string, a ...any) { fmt.Fprintf(&s.Out, format, a...) }

func (s *Scripted) Warn(format string, a ...any) {
	fmt.Fprintf(&s.Out, "WARNING: "+format+"\n", a...)
}

func (s *Scripted) Danger(format string, a ...any) {
	fmt.Fprintf(&s.Out, format+"\n", a...)
}

func (s *Scripted) Debug(verbose bool, format string, a ...any) {
	if verbose {
		fmt.Fprintf(&s.Out, "debug: "+format+"\n", a...)
	}
}

func (s *Scripted) Ask(prompt string) (string, error) {
	s.Asked = append(s.Asked, prompt)
	if len(s.answers) == 0 {
		return "", io.EOF
	}
	ans := s.answers[0]
	s.answers = s.answers[1:]
	return ans, nil
}

func (s *Scripted) Confirm(prompt string) (bool, error) {
	ans, err := s.Ask(prompt)
	if err != nil {
		return false, err
	}
	return IsAffirmative(ans), nil
}
