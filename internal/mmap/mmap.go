// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mmap provides random access to memory-mapped windows of
// device files such as /dev/mem.
package mmap // import "github.com/go-lpc/dtrig/internal/mmap"

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

var (
	errClosed = errors.New("mmap: closed")
)

// Handle is a memory-mapped window.
type Handle struct {
	raw  []byte // whole mapping, page-aligned
	data []byte // requested window
}

// Map maps size bytes of f, starting at offset off, for reading and writing.
//
// off does not need to be page-aligned: the mapping starts at the
// enclosing page boundary and the returned handle only exposes the
// [off, off+size) window, addressed from 0.
func Map(f *os.File, off, size int64) (*Handle, error) {
	if f == nil {
		return nil, os.ErrInvalid
	}
	if off < 0 || size <= 0 {
		return nil, fmt.Errorf("mmap: invalid window (off=0x%x, size=%d)", off, size)
	}

	var (
		page  = int64(unix.Getpagesize())
		start = off &^ (page - 1)
		delta = off - start
	)

	raw, err := unix.Mmap(
		int(f.Fd()),
		start, int(delta+size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		return nil, fmt.Errorf("mmap: could not map 0x%x (size=%d): %w", off, size, err)
	}
	if int64(len(raw)) != delta+size {
		_ = unix.Munmap(raw)
		return nil, fmt.Errorf("mmap: invalid mmap'd data: %d", len(raw))
	}

	h := &Handle{raw: raw, data: raw[delta:]}
	runtime.SetFinalizer(h, (*Handle).Close)
	return h, nil
}

// Close closes the mmap handle.
func (h *Handle) Close() error {
	if h == nil {
		return os.ErrInvalid
	}

	if h.data == nil {
		return nil
	}
	raw := h.raw
	h.raw = nil
	h.data = nil
	runtime.SetFinalizer(h, nil)

	return unix.Munmap(raw)
}

// Len returns the length of the memory-mapped window.
func (h *Handle) Len() int {
	return len(h.data)
}

// At returns the byte at index i.
func (h *Handle) At(i int) byte {
	return h.data[i]
}

// ReadAt implements the io.ReaderAt interface.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid ReadAt offset %d", off)
	}
	n := copy(p, h.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements the io.WriterAt interface.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	if h == nil {
		return 0, os.ErrInvalid
	}

	if h.data == nil {
		return 0, errClosed
	}
	if off < 0 || int64(len(h.data)) < off {
		return 0, fmt.Errorf("mmap: invalid WriteAt offset %d", off)
	}
	n := copy(h.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
	_ io.Closer   = (*Handle)(nil)
)
