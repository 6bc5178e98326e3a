// Package selection implements multi-selection state and movement.
//
// A Selection is an anchor/cursor pair of byte offsets over one buffer; a
// Set is an ordered, non-overlapping collection of them with a designated
// primary. Movements reposition selections without touching buffer content;
// Transform remaps selection offsets after buffer edits so that every
// selection stays valid while text shifts underneath it.
package selection
