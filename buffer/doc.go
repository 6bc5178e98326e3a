// Package buffer provides the text buffer at the core of the editor.
//
// A Buffer owns the byte content of one document, backed by an immutable
// rope, plus a revision counter that increases on every committed mutation.
// All addressing is by byte offset. Mutations are expressed as Edits and
// applied through a history transaction so that every change stays
// reversible; callers outside a transaction get read access only.
package buffer
