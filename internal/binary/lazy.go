// SPDX-License-Identifier: MPL-2.0

package binary

import "sync"

// once holds a value computed on first use. Concurrent callers wait for
// the single computation.
type once[T any] struct {
	do    sync.Once
	value T
}

func (o *once[T]) get(compute func() T) T {
	o.do.Do(func() { o.value = compute() })
	return o.value
}
