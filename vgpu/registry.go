// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

// registry maps the opaque handles given out by a [Device]
// to the vulkan objects they stand for. Handles are never reused.
type registry[H ~uint64, T any] struct {
	last H
	objs map[H]T
}

func (rg *registry[H, T]) add(obj T) H {
	if rg.objs == nil {
		rg.objs = map[H]T{}
	}
	rg.last++
	rg.objs[rg.last] = obj
	return rg.last
}

func (rg *registry[H, T]) get(h H) (T, bool) {
	obj, ok := rg.objs[h]
	return obj, ok
}

// remove deletes the handle, returning the object if it was registered.
func (rg *registry[H, T]) remove(h H) (T, bool) {
	obj, ok := rg.objs[h]
	if ok {
		delete(rg.objs, h)
	}
	return obj, ok
}

func (rg *registry[H, T]) len() int {
	return len(rg.objs)
}
