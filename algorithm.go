// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

// Algorithm identifies one of the four bucket selection strategies.
// Values match the on-wire format's algorithm tags so the codec can
// write/read them directly.
type Algorithm uint8

const (
	AlgUniform Algorithm = 1
	AlgList    Algorithm = 2
	AlgStraw   Algorithm = 4
	AlgStraw2  Algorithm = 5
)

func (a Algorithm) String() string {
	switch a {
	case AlgUniform:
		return "uniform"
	case AlgList:
		return "list"
	case AlgStraw:
		return "straw"
	case AlgStraw2:
		return "straw2"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a loader-facing algorithm name to its Algorithm
// value.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "uniform":
		return AlgUniform, true
	case "list":
		return AlgList, true
	case "straw":
		return AlgStraw, true
	case "straw2":
		return AlgStraw2, true
	default:
		return 0, false
	}
}

// HashAlgorithm identifies the hash family a bucket uses to derive its
// per-child draws. The reference only ever defines one, rjenkins1,
// which is what hash.H1..H5 implement.
type HashAlgorithm uint8

const HashRJenkins1 HashAlgorithm = 0

// ItemNone is the sentinel returned by Choose (and ultimately by the
// engine) when no child could be selected.
const ItemNone int32 = 0x7fffffff
