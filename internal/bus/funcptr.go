package bus

import "reflect"

// funcPtr returns a stable identity for a func value so the trap slot
// can tell "same callback, trapped twice" from "a different callback."
// Go disallows == on func values directly; reflect gives us the
// underlying code pointer instead.
func funcPtr(fn func(addr uint32, value byte)) uintptr {
	if fn == nil {
		return 0
	}
	return reflect.ValueOf(fn).Pointer()
}
