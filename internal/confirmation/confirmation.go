// Package confirmation prompts the operator before destructive operations.
package confirmation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// Prompter asks the operator to approve a destructive operation.
type Prompter interface {
	Confirm(question string, autoApprove bool) (bool, error)
}

// prompter reads answers from an input stream, usually stdin.
type prompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading from stdin and writing to stdout.
func NewPrompter() Prompter {
	return &prompter{in: os.Stdin, out: os.Stdout}
}

// NewPrompterWithStreams creates a prompter on explicit streams, for tests.
func NewPrompterWithStreams(in io.Reader, out io.Writer) Prompter {
	return &prompter{in: in, out: out}
}

// Confirm prompts with a yes/no question and returns the answer, defaulting
// to no. An interrupt while waiting counts as a refusal, so a Ctrl-C during
// the prompt never lets the operation proceed.
func (p *prompter) Confirm(question string, autoApprove bool) (bool, error) {
	if autoApprove {
		fmt.Fprintf(p.out, "%s [auto-approved]\n", question)
		return true, nil
	}

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interruptChan)

	answerChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		fmt.Fprintf(p.out, "%s [y/N]: ", question)
		answer, err := bufio.NewReader(p.in).ReadString('\n')
		if err != nil && err != io.EOF {
			errChan <- err
			return
		}
		answerChan <- answer
	}()

	select {
	case <-interruptChan:
		fmt.Fprintln(p.out, "\nOperation cancelled")
		return false, nil
	case err := <-errChan:
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	case answer := <-answerChan:
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes", nil
	}
}
