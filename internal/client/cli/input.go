package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C or EOF).
var ErrAborted = errors.New("aborted")

// Test seams for terminal access.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// Prompter asks the user for a single value. validate, when not nil, is
// run on the answer; interactive prompters re-ask until it passes.
type Prompter interface {
	Prompt(label string, mask bool, validate func(string) error) (string, error)
}

// newPrompter picks promptui for capable terminals and plain line reading
// otherwise.
func newPrompter(in *bufio.Reader, out io.Writer, fd int) Prompter {
	tty := isTerminal(fd)
	if tty && os.Getenv("TERM") != "dumb" {
		return promptuiPrompter{}
	}
	return &linePrompter{reader: in, out: out, fd: fd, tty: tty}
}

// promptuiPrompter is used on real terminals.
type promptuiPrompter struct{}

func (promptuiPrompter) Prompt(label string, mask bool, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Validate: validate,
	}
	if mask {
		p.Mask = '*'
	}

	result, err := p.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF) {
		return "", ErrAborted
	}
	return answer(result, mask), err
}

// answer trims an entered value. Masked values keep their surrounding
// spaces, only the line terminator is dropped.
func answer(s string, mask bool) string {
	if mask {
		return strings.TrimRight(s, "\r\n")
	}
	return strings.TrimSpace(s)
}

// linePrompter reads plain lines, for piped input and dumb terminals. It
// does not validate; callers check the whole form afterwards. Masked
// values are read without echo when fd is a terminal.
type linePrompter struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
	tty    bool
}

func (p *linePrompter) Prompt(label string, mask bool, _ func(string) error) (string, error) {
	if mask && p.tty {
		pw, err := GetPassword(p.out, label, p.fd)
		if err != nil {
			return "", err
		}
		defer common.WipeByteArray(pw)
		return string(pw), nil
	}

	s, err := readLine(p.reader, label, p.out)
	if errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	return answer(s, mask), err
}

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The surrounding whitespace is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	line, err := readLine(reader, prompt, w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readLine(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

// GetPassword prints a prompt to w and reads a password from the terminal
// fd without echo. A newline is printed after the read to keep the UI tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer, prompt string, fd int) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// validator adapts a message-returning validation func to promptui.
func validator(fn func(string) string) func(string) error {
	return func(s string) error {
		if msg := fn(s); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}
