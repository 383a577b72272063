package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter is the interactive collaborator of the calibration procedure.
// Prompts block indefinitely awaiting operator input; only context
// cancellation releases a pending prompt.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(ctx context.Context, msg string) (bool, error)

	// Ack displays a message and waits for the operator to press enter.
	Ack(ctx context.Context, msg string) error

	// Say displays a message without waiting.
	Say(msg string)
}

// TerminalPrompter reads operator input line by line from a reader,
// normally stdin. Reads happen on a goroutine so a cancelled context
// releases the pending prompt immediately.
type TerminalPrompter struct {
	in    *bufio.Reader
	out   io.Writer
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

// NewTerminalPrompter constructs a prompter over the given streams.
// Passing nil selects stdin/stdout.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	p := &TerminalPrompter{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult, 1),
	}
	return p
}

// Say implements Prompter.
func (p *TerminalPrompter) Say(msg string) {
	fmt.Fprintln(p.out, msg)
}

// Ack implements Prompter.
func (p *TerminalPrompter) Ack(ctx context.Context, msg string) error {
	fmt.Fprintf(p.out, "%s (press enter) ", msg)
	_, err := p.readLine(ctx)
	return err
}

// Confirm implements Prompter. Empty input and anything starting with
// 'y'/'Y' counts as yes.
func (p *TerminalPrompter) Confirm(ctx context.Context, msg string) (bool, error) {
	fmt.Fprintf(p.out, "%s [Y/n] ", msg)
	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "" || strings.HasPrefix(line, "y"), nil
}

func (p *TerminalPrompter) readLine(ctx context.Context) (string, error) {
	go func() {
		text, err := p.in.ReadString('\n')
		p.lines <- lineResult{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		// The read goroutine stays parked on stdin; the buffered channel
		// lets it finish without leaking when input eventually arrives.
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case res := <-p.lines:
		if res.err != nil && res.text == "" {
			return "", res.err
		}
		return strings.TrimRight(res.text, "\r\n"), nil
	}
}
