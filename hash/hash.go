// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hash implements the fixed family of 32-bit integer hashes the
// placement engine uses for every pseudo-random decision. All five
// variants (h1..h5) are built from the same Jenkins subtract/shift/xor mix so
// that a 1-, 2-, 3-, 4- or 5-argument call is just that many more words
// folded into the same avalanche. Nothing here touches a clock, a
// counter, or an address: same inputs always produce the same output,
// on any platform.
package hash

// seed is CRUSH's fixed hash seed; it exists only to make h1(a) differ
// from a bare mix(a, a, a).
const seed uint32 = 0x28371232

// mix is Bob Jenkins' 96-bit (three-word) mix, the full avalanche used
// throughout.
func mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= b
	a -= c
	a ^= c >> 13
	b -= c
	b -= a
	b ^= a << 8
	c -= a
	c -= b
	c ^= b >> 13
	a -= b
	a -= c
	a ^= c >> 12
	b -= c
	b -= a
	b ^= a << 16
	c -= a
	c -= b
	c ^= b >> 5
	a -= b
	a -= c
	a ^= c >> 3
	b -= c
	b -= a
	b ^= a << 10
	c -= a
	c -= b
	c ^= b >> 15
	return a, b, c
}

// H1 hashes a single 32-bit key.
func H1(a uint32) uint32 {
	_, _, c := mix(a, seed, 231232^a)
	return c
}

// H2 hashes two 32-bit keys, e.g. (x, bucket id) for the uniform algorithm.
func H2(a, b uint32) uint32 {
	_, _, c := mix(a, b, seed^a^b)
	return c
}

// H3 hashes three 32-bit keys, e.g. (x, child id, replica) for straw/straw2.
func H3(a, b, c uint32) uint32 {
	x, y, z := mix(a, b, seed^a^b^c)
	_, _, z = mix(x, y, z^c)
	return z
}

// H4 hashes four 32-bit keys, used by the list algorithm.
func H4(a, b, c, d uint32) uint32 {
	w, x, y := mix(a, b, seed^a^b^c^d)
	_, _, y = mix(w^c, x, y)
	_, _, y = mix(y, d, y)
	return y
}

// H5 hashes five 32-bit keys; no current algorithm needs more than four,
// but the family is defined out to five per the reference hash set.
func H5(a, b, c, d, e uint32) uint32 {
	v := H4(a, b, c, d)
	_, _, z := mix(v, e, seed^v^e)
	return z
}
