// main.go - ie286dbg: an interactive debugger for the 80286
// segmentation core (bus + segment registers + a decode-free stub
// CPU), wired together the way main.go bootstraps one bus/CPU pair per
// architecture flag, narrowed to this module's single core.

package main

import (
	"fmt"
	"os"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
	cli "gopkg.in/urfave/cli.v2"

	"github.com/ie286emu/core/internal/debugger"
)

func boilerPlate() {
	fmt.Println("ie286dbg - an 80286 protected-mode segmentation debugger")
	fmt.Println("bus + segment registers + a decode-free stub CPU")
}

func main() {
	app := &cli.App{
		Name:  "ie286dbg",
		Usage: "interactive 80286 segmentation-unit debugger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "load", Aliases: []string{"l"}, Usage: "raw binary to load before starting"},
			&cli.UintFlag{Name: "entry", Aliases: []string{"e"}, Usage: "CS:IP entry offset", Value: defaultEntry},
			&cli.UintFlag{Name: "addr", Aliases: []string{"a"}, Usage: "address to load the binary at", Value: defaultEntry},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "start the debugger (TUI if attached to a terminal, line REPL otherwise)",
				Action: func(c *cli.Context) error {
					m := buildMachine(c)
					if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
						_, err := tea.NewProgram(newTUIModel(m)).Run()
						return err
					}
					runREPL(m, os.Stdin, os.Stdout)
					return nil
				},
			},
			{
				Name:      "script",
				Usage:     "run a Lua macro script non-interactively and exit",
				ArgsUsage: "<script.lua>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() < 1 {
						return cli.Exit("usage: ie286dbg script <path>", 1)
					}
					m := buildMachine(c)
					m.CP.Execute(debugger.ParseCommand("scload " + c.Args().First()))
					for _, l := range m.Debug.Output() {
						fmt.Println(l.Text)
					}
					return nil
				},
			},
		},
		Action: func(c *cli.Context) error {
			boilerPlate()
			return cli.ShowAppHelp(c)
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildMachine(c *cli.Context) *Machine {
	entry := uint16(c.Uint("entry"))
	m := NewMachine(entry)
	if path := c.String("load"); path != "" {
		if err := m.LoadBinary(path, uint32(c.Uint("addr"))); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	return m
}
