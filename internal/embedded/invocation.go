// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package embedded seals interfaces so only types of this module can implement them.
package embedded

type Invocation interface {
	invocation()
}
