// Command ptydemo wires headlessterm to a real PTY running the user's shell,
// printing a snapshot of the grid once the shell exits.
package main

import (
	"fmt"
	"log"
	"os"

	headlessterm "github.com/vtcore/headlessterm"
)

type eventLog struct{}

func (eventLog) OnEOF() {
	fmt.Fprintln(os.Stderr, "ptydemo: child reached eof")
}

func (eventLog) OnChildExited(state *os.ProcessState, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "ptydemo: child exited: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "ptydemo: child exited: %s\n", state)
}

func (eventLog) OnResizeFailed(err error) {
	fmt.Fprintf(os.Stderr, "ptydemo: resize failed, keeping previous size: %v\n", err)
}

func main() {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	const rows, cols = 24, 80

	term := headlessterm.New(
		headlessterm.WithSize(rows, cols),
		headlessterm.WithScrollback(headlessterm.NewRingScrollback(1000)),
	)

	session := headlessterm.NewPTYSession(eventLog{})
	if err := session.Start(shell, []string{"-c", "echo hello from the pty; exit"}, rows, cols); err != nil {
		log.Fatalf("ptydemo: start: %v", err)
	}
	if err := session.Attach(term); err != nil {
		log.Fatalf("ptydemo: attach: %v", err)
	}

	<-session.Done()

	fmt.Println("=== snapshot ===")
	fmt.Println(term.String())
}
