// Package prompt handles operator interaction: questions, confirmations and
// styled warnings.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Affirmative is the only answer Confirm accepts as yes.
const Affirmative = "y"

var (
	colorDanger  = lipgloss.Color("#FF0055")
	colorWarning = lipgloss.Color("#F59E0B")
	colorSubtle  = lipgloss.Color("#64748B")

	dangerStyle  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	subtleStyle  = lipgloss.NewStyle().Foreground(colorSubtle)
)

// UI abstracts operator interaction.
type UI interface {
	Println(a ...any)
	Printf(format string, a ...any)
	// Warn prints a non-fatal problem.
	Warn(format string, a ...any)
	// Danger prints a destructive-action notice.
	Danger(format string, a ...any)
	// Debug prints only when verbose output is on.
	Debug(verbose bool, format string, a ...any)
	Ask(prompt string) (string, error)
	// Confirm defaults to no; only the exact Affirmative answer is yes.
	Confirm(prompt string) (bool, error)
}

type stdUI struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdUI returns a UI backed by stdin/stdout.
func NewStdUI() UI {
	return New(os.Stdin, os.Stdout)
}

// New returns a UI reading answers from in and writing to out.
func New(in io.Reader, out io.Writer) UI {
	return &stdUI{in: bufio.NewReader(in), out: out}
}

func (u *stdUI) Println(a ...any) {
	fmt.Fprintln(u.out, a...)
}

func (u *stdUI) Printf(format string, a ...any) {
	fmt.Fprintf(u.out, format, a...)
}

func (u *stdUI) Warn(format string, a ...any) {
	fmt.Fprintln(u.out, warningStyle.Render("WARNING: "+fmt.Sprintf(format, a...)))
}

func (u *stdUI) Danger(format string, a ...any) {
	fmt.Fprintln(u.out, dangerStyle.Render(fmt.Sprintf(format, a...)))
}

func (u *stdUI) Debug(verbose bool, format string, a ...any) {
	if !verbose {
		return
	}
	fmt.Fprintln(u.out, subtleStyle.Render("debug: "+fmt.Sprintf(format, a...)))
}

func (u *stdUI) Ask(prompt string) (string, error) {
	u.Printf("%s", prompt)
	text, err := u.in.ReadString('\n')
	if err != nil && !(err == io.EOF && text != "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (u *stdUI) Confirm(prompt string) (bool, error) {
	ans, err := u.Ask(fmt.Sprintf("%s [%s/N]: ", prompt, Affirmative))
	if err != nil {
		return false, err
	}
	return IsAffirmative(ans), nil
}

// IsAffirmative reports whether an answer, already trimmed of surrounding
// whitespace, is the affirmative token.
func IsAffirmative(answer string) bool {
	return answer == Affirmative
}
