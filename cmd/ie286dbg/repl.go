// repl.go - plain line-oriented front-end for piped/non-tty use
// (CI, `ie286dbg script`, redirected stdin). Prints a "(286) " prompt,
// reads one command per line, dispatches it through CommandProcessor,
// and prints whatever the debugger appended to its scrollback buffer.

package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ie286emu/core/internal/debugger"
)

func runREPL(m *Machine, in io.Reader, out io.Writer) {
	m.Debug.StartBreakpointListener()
	m.Debug.Go(m.Runner.Run)
	defer m.Debug.StopBreakpointListener()

	scanner := bufio.NewScanner(in)
	printed := 0
	flush := func() {
		lines := m.Debug.Output()
		for _, l := range lines[printed:] {
			fmt.Fprintln(out, l.Text)
		}
		printed = len(lines)
	}

	fmt.Fprint(out, "(286) ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "q" || line == "quit" || line == "exit" {
			break
		}
		m.CP.Execute(debugger.ParseCommand(line))
		flush()
		fmt.Fprint(out, "(286) ")
	}
	fmt.Fprintln(out)
}
