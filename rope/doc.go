// Package rope implements an immutable rope for text storage.
//
// A Rope is a balanced binary tree whose leaves hold small string chunks.
// All operations return a new Rope; existing values are never mutated, so
// ropes can be shared freely across snapshots and goroutines. Insert,
// Delete and Slice run in O(log n) plus the size of the affected text,
// which keeps edits at arbitrary offsets cheap even for large documents.
package rope
