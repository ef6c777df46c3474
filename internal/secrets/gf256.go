package secrets

// Arithmetic in GF(2^8) modulo the AES polynomial x^8+x^4+x^3+x+1 (0x11b).
// Multiplication runs a fixed number of steps with no data-dependent
// branches or table lookups.

func gfAdd(a, b byte) byte {
	return a ^ b
}

func gfMul(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		p ^= -(b & 1) & a
		carry := -(a >> 7)
		a = (a << 1) ^ (0x1b & carry)
		b >>= 1
	}
	return p
}

// gfInv returns a^254, which is a^-1 for a != 0. gfInv(0) is 0.
func gfInv(a byte) byte {
	r := a
	for i := 0; i < 6; i++ {
		r = gfMul(r, r)
		r = gfMul(r, a)
	}
	return gfMul(r, r)
}

func gfDiv(a, b byte) byte {
	return gfMul(a, gfInv(b))
}
