// truncate.go - Width truncation (spec §4.4 step 6, invariant 7)

package expr

// Truncate reduces x to n bits. unsigned yields x mod 2^n; otherwise
// the result is sign-extended back to 64 bits when bit n-1 is set, so
// the returned uint64's bit pattern is the two's-complement
// representation of the signed value.
func Truncate(x uint64, n int, unsigned bool) uint64 {
	if n <= 0 || n >= 64 {
		return x
	}
	mask := uint64(1)<<uint(n) - 1
	v := x & mask
	if !unsigned && v&(1<<uint(n-1)) != 0 {
		v |= ^mask
	}
	return v
}
