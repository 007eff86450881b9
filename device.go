// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package crush

// Device is a leaf placement target: a non-negative id plus the name
// the external interfaces (loader, dump, engine's device_name-keyed
// weights map) address it by. A Device is never itself stored inside a
// bucket's child table structurally — buckets hold bare ids — but the
// Map keeps this side table so names can be resolved both ways.
type Device struct {
	ID   int32
	Name string
}
