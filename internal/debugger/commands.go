// commands.go - Command parser and dispatcher for the interactive
// debugger (spec §4.6).
//
// Grounded on debug_commands.go's ParseCommand/dispatch shape and its
// EvalAddress register-aware address evaluator, rebuilt on the §4.4
// expression evaluator instead of a bespoke +/- scanner so every
// numeric argument (addresses, values, byte counts) shares one
// grammar with conditional-breakpoint expressions.

package debugger

import (
	"strconv"
	"strings"

	"github.com/ie286emu/core/internal/expr"
)

// Command is a parsed input line: a lowercased name and its
// whitespace-split arguments.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a raw input line into name and arguments.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return Command{}
	}
	parts := strings.Fields(input)
	return Command{Name: strings.ToLower(parts[0]), Args: parts[1:]}
}

// CommandProcessor dispatches parsed commands against a Debugger.
type CommandProcessor struct {
	d   *Debugger
	lua *luaScripting
}

// NewCommandProcessor builds a processor over d. Lua macro scripting
// (`sc`/`scload`) initializes lazily on first use.
func NewCommandProcessor(d *Debugger) *CommandProcessor {
	return &CommandProcessor{d: d}
}

// resolve looks up a register by name, or a "mem:<addr>" pseudo-name
// for the one-byte memory dereference conditions.go's `[addr]` form
// produces.
func (cp *CommandProcessor) resolve(name string) (uint64, bool) {
	if rest, ok := strings.CutPrefix(name, "mem:"); ok {
		addr, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint64(cp.d.Bus.ReadData(uint32(addr), nil)), true
	}
	return cp.d.CPU.Register(strings.ToUpper(name))
}

// evalAddr evaluates s as a §4.4 expression, resolving register names
// through the focused CPU.
func (cp *CommandProcessor) evalAddr(s string) (uint64, bool) {
	return expr.Evaluate(s, expr.Options{DefaultBits: 32, Unsigned: true, Resolve: cp.resolve})
}

// Resolve exposes the same register/"mem:"-prefixed lookup evalAddr
// uses, for a free-running CPU driver outside this package that needs
// to evaluate breakpoint conditions (ResolveFunc) itself.
func (cp *CommandProcessor) Resolve(name string) (uint64, bool) {
	return cp.resolve(name)
}

// Execute runs one parsed command, appending its output to the
// debugger's scrollback buffer. Returns false only for "unknown
// command", matching spec §7's "parse errors never halt the machine."
func (cp *CommandProcessor) Execute(cmd Command) bool {
	d := cp.d
	switch cmd.Name {
	case "":
		return true

	case "?", "help":
		d.Printf("commands: t g u r [v] bp cb cl lb wp lw sh dh bt io ss sl sc scload")
		return true

	case "r": // show registers; "r v" dumps full descriptor caches too
		if len(cmd.Args) > 0 && cmd.Args[0] == "v" {
			d.Printf("%s", d.CPU.String(true))
			return true
		}
		for _, reg := range d.CPU.Registers() {
			d.Printf("%-4s = $%0*X", reg.Name, reg.BitWidth/4, reg.Value)
		}
		return true

	case "t": // step one instruction
		cp.step(1)
		return true

	case "g": // go: run n steps (or until breakpoint) with no arg meaning "run"
		n := 0
		if len(cmd.Args) > 0 {
			if v, ok := cp.evalAddr(cmd.Args[0]); ok {
				n = int(v)
			}
		}
		if n <= 0 {
			d.Resume()
			return true
		}
		cp.step(n)
		return true

	case "u": // unassemble
		addr := d.CPU.PC()
		count := 8
		if len(cmd.Args) > 0 {
			if v, ok := cp.evalAddr(cmd.Args[0]); ok {
				addr = v
			}
		}
		if len(cmd.Args) > 1 {
			if v, ok := cp.evalAddr(cmd.Args[1]); ok {
				count = int(v)
			}
		}
		for _, line := range d.CPU.Disassemble(addr, count) {
			d.Printf("  $%04X  %-12s %s", line.Address, line.HexBytes, line.Mnemonic)
		}
		return true

	case "bp": // set breakpoint, optionally "bp <addr> if <cond>"
		return cp.cmdBreak(cmd.Args)

	case "cb": // clear single breakpoint
		if len(cmd.Args) < 1 {
			d.Printf("usage: cb <addr>")
			return true
		}
		addr, ok := cp.evalAddr(cmd.Args[0])
		if !ok || !d.Breakpoints.Clear(addr) {
			d.Printf("no breakpoint at %s", cmd.Args[0])
			return true
		}
		d.Printf("cleared breakpoint at $%X", addr)
		return true

	case "cl": // clear all breakpoints
		d.Breakpoints.ClearAll()
		d.Printf("all breakpoints cleared")
		return true

	case "lb": // list breakpoints
		for _, a := range d.Breakpoints.List() {
			d.Printf("%s", d.Breakpoints.Get(a).Format())
		}
		return true

	case "wp": // set watchpoint
		if len(cmd.Args) < 1 {
			d.Printf("usage: wp <addr>")
			return true
		}
		addr, ok := cp.evalAddr(cmd.Args[0])
		if !ok || !d.Breakpoints.SetWatch(uint32(addr)) {
			d.Printf("cannot set watchpoint at %s", cmd.Args[0])
			return true
		}
		d.Printf("watchpoint set at $%X", addr)
		return true

	case "lw": // list watchpoints
		for _, a := range d.Breakpoints.ListWatch() {
			d.Printf("$%X", a)
		}
		return true

	case "sh": // step-history trace on/off
		if len(cmd.Args) < 1 {
			d.Printf("sh is %v", d.History.Enabled())
			return true
		}
		d.History.SetEnabled(strings.EqualFold(cmd.Args[0], "on"))
		return true

	case "dh": // dump last n history entries
		n := 10
		if len(cmd.Args) > 0 {
			if v, ok := cp.evalAddr(cmd.Args[0]); ok {
				n = int(v)
			}
		}
		for _, pc := range d.History.Last(n) {
			d.Printf("$%X", pc)
		}
		return true

	case "bt": // backtrace
		ss := d.Segs["SS"]
		if ss == nil {
			d.Printf("no SS segment registered")
			return true
		}
		sp, _ := d.CPU.Register("SP")
		frames := Backtrace(ss, uint16(sp), 16, func(linear uint32) uint16 {
			lo := d.Bus.ReadData(linear, nil)
			hi := d.Bus.ReadData(linear+1, nil)
			return uint16(lo) | uint16(hi)<<8
		})
		for _, line := range FormatBacktrace(frames) {
			d.Printf("%s", line)
		}
		return true

	case "io": // mapped region view
		for _, line := range FormatIOView(d.Bus) {
			d.Printf("%s", line)
		}
		return true

	case "ss": // save snapshot
		if len(cmd.Args) < 1 {
			d.Printf("usage: ss <path>")
			return true
		}
		snap := Take(d.Bus, d.Segs, d.Breakpoints)
		if err := SaveToFile(snap, cmd.Args[0]); err != nil {
			d.Printf("save failed: %v", err)
			return true
		}
		d.Printf("saved snapshot to %s", cmd.Args[0])
		return true

	case "sl": // load snapshot
		if len(cmd.Args) < 1 {
			d.Printf("usage: sl <path>")
			return true
		}
		snap, err := LoadFromFile(cmd.Args[0])
		if err != nil {
			d.Printf("load failed: %v", err)
			return true
		}
		Restore(snap, d.Bus, d.Segs, d.Breakpoints)
		d.Printf("loaded snapshot from %s", cmd.Args[0])
		return true

	case "sc": // run a named macro
		cp.ensureLua()
		if len(cmd.Args) < 1 {
			d.Printf("usage: sc <name> [args...]")
			return true
		}
		if err := cp.lua.Call(cmd.Args[0], cmd.Args[1:]); err != nil {
			d.Printf("macro error: %v", err)
		}
		return true

	case "scload": // load a macro script
		cp.ensureLua()
		if len(cmd.Args) < 1 {
			d.Printf("usage: scload <path>")
			return true
		}
		if err := cp.lua.LoadFile(cmd.Args[0]); err != nil {
			d.Printf("load failed: %v", err)
			return true
		}
		d.Printf("loaded %s", cmd.Args[0])
		return true

	default:
		d.Printf("unknown command: %s", cmd.Name)
		return false
	}
}

func (cp *CommandProcessor) cmdBreak(args []string) bool {
	d := cp.d
	if len(args) < 1 {
		d.Printf("usage: bp <addr> [if <condition>]")
		return true
	}
	addr, ok := cp.evalAddr(args[0])
	if !ok {
		d.Printf("bad address: %s", args[0])
		return true
	}
	if len(args) >= 3 && strings.EqualFold(args[1], "if") {
		condText := strings.Join(args[2:], " ")
		cond, err := ParseCondition(condText)
		if err != nil {
			d.Printf("bad condition: %v", err)
			return true
		}
		d.Breakpoints.SetConditional(addr, cond)
		d.Printf("breakpoint set at $%X if %s", addr, condText)
		return true
	}
	d.Breakpoints.Set(addr)
	d.Printf("breakpoint set at $%X", addr)
	return true
}

// step executes n instructions, checking for breakpoint hits after
// each. Trace history, when enabled, is recorded by the Bus's own
// read trap as each instruction is fetched (see history.go) rather
// than by any explicit call here.
func (cp *CommandProcessor) step(n int) {
	d := cp.d
	for i := 0; i < n; i++ {
		d.CPU.Step()
		pc := d.CPU.PC()
		if d.Breakpoints.CheckHit(pc, cp.resolve) {
			return
		}
	}
	d.Printf("PC = $%X", d.CPU.PC())
}
