// Package history provides edit transactions and the undo/redo stacks.
//
// All buffer mutation flows through a Transaction: edits apply to the
// buffer immediately as they are recorded, and committing the
// transaction pushes one atomic history entry holding the edits plus
// the selection sets from before and after. Undo restores both the
// content and the selections of the earlier state; redo replays the
// transaction. Aborting a transaction rolls its edits back, leaving no
// trace in history.
package history
