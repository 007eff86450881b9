// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

/*
Package crush computes deterministic, pseudo-random placement of
logical objects onto a weighted hierarchy of storage devices, in the
style of the CRUSH algorithm used by large-scale distributed object
stores.

# Overview

Given an input identifier and a placement rule, the engine returns an
ordered list of target device ids such that devices are chosen
proportionally to their weight and small changes to the hierarchy
perturb only a minimal fraction of outputs. The mapping is a pure
function of the map state, the rule, and the input: no clock, counter,
or allocation address ever influences a result.

# Architecture

The module is organized leaves-first:

  - hash/       the fixed Jenkins-mix hash family (h1..h5)
  - (root)      bucket algorithms, the map data model, and finalization
  - wire/       the binary on-wire codec
  - loader/     the JSON-shaped map loader
  - engine/     the bytecode placement engine
  - chooseargs/ per-bucket weight/id overrides applied at mapping time
  - crusherr/   the stable error kinds every operation surfaces
  - cmd/crush/  a thin CLI wrapping parse/map/convert/encode

# Basic usage

	m := crush.New(crush.Options{})
	lib := chooseargs.NewLibrary()
	if err := loader.Parse(m, record, lib); err != nil {
		// handle
	}
	result, err := engine.Map(m, "replicated", 42, 3, nil, nil)

# Determinism

Every placement decision is derived from hash.H1..H5. There is no
global mutable state: a Map's Tunables are copied into the engine for
the duration of one call, and ChooseArgs overrides are applied without
mutating the underlying bucket. A built Map is read-only through the
mapping interface; it is only mutated by the loader or by an explicit
Reweight/Finalize call.
*/
package crush
