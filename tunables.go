// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

// Tunables are the integer knobs that control retries, stability, and
// compatibility behavior of the placement engine. They
// live on the Map as defaults and may be overridden per rule via the
// rule's SET_* steps; the engine takes an effective copy for the
// duration of a single Map() call and never mutates the Map's copy.
type Tunables struct {
	ChooseTotalTries           int
	ChooseLocalTries           int
	ChooseLocalFallbackTries   int
	ChooseleafDescendOnce      int
	ChooseleafVaryR            int
	ChooseleafStable           int
	StrawCalcVersion           int
	AllowedBucketAlgs          uint32
}

// DefaultTunables returns the reference default tunable set.
func DefaultTunables() Tunables {
	return Tunables{
		ChooseTotalTries:         50,
		ChooseLocalTries:         0,
		ChooseLocalFallbackTries: 0,
		ChooseleafDescendOnce:    1,
		ChooseleafVaryR:          1,
		ChooseleafStable:         1,
		StrawCalcVersion:         1,
		AllowedBucketAlgs:        allAlgsMask,
	}
}

const allAlgsMask = (1 << AlgUniform) | (1 << AlgList) | (1 << AlgStraw) | (1 << AlgStraw2)

// AlgAllowed reports whether alg is permitted under t.AllowedBucketAlgs.
func (t Tunables) AlgAllowed(alg Algorithm) bool {
	return t.AllowedBucketAlgs&(1<<uint(alg)) != 0
}
