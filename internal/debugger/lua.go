// lua.go - Debugger macro scripting (`sc`/`scload` commands).
//
// The teacher declares a placeholder `macros map[string][]string` /
// `scriptDepth int` on MachineMonitor but never wires a scripting
// engine to them (debug_monitor.go). IntuitionEngine itself uses
// gopher-lua elsewhere for its guest BASIC/scripting surface; this
// repurposes the same dependency for debugger macros instead
// (SPEC_FULL.md §4.6).

package debugger

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

const maxScriptDepth = 8

// luaScripting owns one Lua state and the debugger hooks exposed to
// it: cmd(text) runs a debugger command, print(text) writes to the
// scrollback.
type luaScripting struct {
	d     *Debugger
	state *lua.LState
	depth int
	cp    *CommandProcessor
}

func (cp *CommandProcessor) ensureLua() {
	if cp.lua != nil {
		return
	}
	ls := lua.NewState()
	s := &luaScripting{d: cp.d, state: ls, cp: cp}
	ls.SetGlobal("cmd", ls.NewFunction(s.luaCmd))
	ls.SetGlobal("print", ls.NewFunction(s.luaPrint))
	cp.lua = s
}

// luaCmd exposes debugger command execution to macro scripts:
// `cmd("bp 0x100")` runs the `bp` command as if typed at the prompt.
func (s *luaScripting) luaCmd(L *lua.LState) int {
	text := L.CheckString(1)
	s.cp.Execute(ParseCommand(text))
	return 0
}

func (s *luaScripting) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	for i := 1; i <= n; i++ {
		s.d.Printf("%s", L.ToStringMeta(L.Get(i)).String())
	}
	return 0
}

// LoadFile compiles and runs a Lua macro script from path, registering
// any top-level functions it defines as callable macro names.
func (s *luaScripting) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if err := s.state.DoFile(path); err != nil {
		return fmt.Errorf("running %s: %w", path, err)
	}
	return nil
}

// Call invokes a previously loaded macro function by name with args
// passed as Lua strings, guarding against runaway recursive `sc`
// calls via maxScriptDepth.
func (s *luaScripting) Call(name string, args []string) error {
	if s.depth >= maxScriptDepth {
		return fmt.Errorf("macro recursion limit (%d) exceeded", maxScriptDepth)
	}
	fn := s.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("undefined macro: %s", name)
	}
	luaArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		luaArgs[i] = lua.LString(a)
	}
	s.depth++
	defer func() { s.depth-- }()
	return s.state.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, luaArgs...)
}
