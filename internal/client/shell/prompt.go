package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers line by line. Passwords are read without echo
// when the input is a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// fd is the terminal file descriptor of the input, or -1.
	fd           int
	readPassword func(fd int) ([]byte, error)
}

// NewPrompter reads from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{
		in:           bufio.NewReader(in),
		out:          out,
		fd:           fd,
		readPassword: term.ReadPassword,
	}
}

// Line prints label and returns the trimmed answer. io.EOF is returned when
// the input is exhausted.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Password is Line without echo on terminals. The answer is not trimmed.
// Input already buffered, such as pasted lines, is consumed before the
// terminal is read directly.
func (p *Prompter) Password(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if p.fd < 0 || p.in.Buffered() > 0 {
		return p.readLine()
	}

	defer fmt.Fprintln(p.out)
	raw, err := p.readPassword(p.fd)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF):
		if line == "" {
			return "", io.EOF
		}
	case err != nil:
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Printf writes to the output.
func (p *Prompter) Printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Println writes a line to the output.
func (p *Prompter) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}
