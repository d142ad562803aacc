package expr

import "testing"

func TestScenarioCGroupingAndBase(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"{3+4}*2", 14},
		{"0xff & 0xf0", 0xf0},
		{"10.", 10},
	}
	for _, c := range cases {
		got, ok := Evaluate(c.in, Options{DefaultBits: 32})
		if !ok {
			t.Fatalf("Evaluate(%q): parse failed", c.in)
		}
		if got != c.want {
			t.Errorf("Evaluate(%q) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestInvariant6RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 0x1234, 0xFFFFFFFF, 0xDEADBEEF} {
		text := ToBase(v)
		got, ok := Evaluate(text, Options{DefaultBits: 32, Unsigned: true})
		if !ok {
			t.Fatalf("Evaluate(%q): parse failed", text)
		}
		if got != v {
			t.Errorf("round trip %#x -> %q -> %#x", v, text, got)
		}
	}
}

func TestInvariant7Truncation(t *testing.T) {
	if got := Truncate(0x1FF, 8, true); got != 0xFF {
		t.Errorf("unsigned truncate: got %#x, want 0xff", got)
	}
	if got := Truncate(0xFF, 8, false); got != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("signed truncate of 0xff/8 (negative): got %#x, want all-ones", got)
	}
	if got := Truncate(0x7F, 8, false); got != 0x7F {
		t.Errorf("signed truncate of 0x7f/8 (positive): got %#x, want 0x7f", got)
	}
}

func TestDefaultBaseHex(t *testing.T) {
	// a hex digit string must still begin with a decimal digit to be
	// recognized as a literal at all (spec: symbols and numbers are
	// told apart by their first character), so a leading letter needs
	// a leading 0, as in traditional assemblers.
	got, ok := Evaluate("0ff", Options{DefaultBits: 16})
	if !ok || got != 0xff {
		t.Fatalf("Evaluate(0ff) = %#x, %v; want 0xff, true", got, ok)
	}
}

func TestDecGroupingSelectsDecTable(t *testing.T) {
	// under DEC-style grouping, `,,` packs two 18-bit halves.
	got, ok := Evaluate("<1,,2>", Options{DefaultBits: 64, GroupOpen: '<', GroupClose: '>'})
	if !ok {
		t.Fatalf("Evaluate(<1,,2>): parse failed")
	}
	want := uint64(1)<<18 | 2
	if got != want {
		t.Errorf("Evaluate(<1,,2>) = %#x, want %#x", got, want)
	}
}

func TestUnaryMinus(t *testing.T) {
	got, ok := Evaluate("-1", Options{DefaultBits: 16, Unsigned: true})
	if !ok {
		t.Fatalf("Evaluate(-1): parse failed")
	}
	if got != 0xFFFF {
		t.Errorf("Evaluate(-1) = %#x, want 0xffff", got)
	}
}

func TestBaseOverridePrefix(t *testing.T) {
	got, ok := Evaluate("^O17", Options{DefaultBits: 16})
	if !ok || got != 15 {
		t.Fatalf("Evaluate(^O17) = %#x, %v; want 15, true", got, ok)
	}
}

func TestBinaryShiftSuffix(t *testing.T) {
	got, ok := Evaluate("1B4", Options{DefaultBits: 16})
	if !ok || got != 16 {
		t.Fatalf("Evaluate(1B4) = %#x, %v; want 16, true", got, ok)
	}
}

func TestResolveIdentifier(t *testing.T) {
	opts := Options{
		DefaultBits: 16,
		Resolve: func(name string) (uint64, bool) {
			if name == "AX" {
				return 0x1234, true
			}
			return 0, false
		},
	}
	got, ok := Evaluate("AX+1", opts)
	if !ok || got != 0x1235 {
		t.Fatalf("Evaluate(AX+1) = %#x, %v; want 0x1235, true", got, ok)
	}
	if _, ok := Evaluate("BX", opts); ok {
		t.Errorf("Evaluate(BX) should fail for unresolved symbol")
	}
}

func TestAsciiAndSixbitLiterals(t *testing.T) {
	got, ok := Evaluate(`"A"`, Options{DefaultBits: 16})
	if !ok || got != uint64('A'&0x7F) {
		t.Fatalf(`Evaluate("A") = %#x, %v`, got, ok)
	}
	got, ok = Evaluate(`'A'`, Options{DefaultBits: 16})
	want := uint64(('A' - 0x20) & 0x3F)
	if !ok || got != want {
		t.Fatalf("Evaluate('A') = %#x, %v; want %#x", got, ok, want)
	}
}
