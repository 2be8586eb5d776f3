// Package mmap maps spilled blobs read-only into memory.
//
//	f, err := mmap.Open(path)
//	if err != nil { ... }
//	defer f.Close()
//	data := f.Bytes()
//
// On Unix the file is mapped with mmap(2). Elsewhere the file is read into
// memory once.
package mmap
