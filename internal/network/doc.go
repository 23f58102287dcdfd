// Package network owns the interferogram network model and the drop
// decisioning that prunes it.
//
// The network is an undirected graph: vertices are acquisition dates,
// edges are interferogram pairs. Pruning runs as a pure reduction over
// an immutable Snapshot of the stack plus a Criteria value naming the
// enabled rules. Every enabled rule contributes a drop list computed
// independently from the same snapshot; the lists are unioned, never
// short-circuited, so enabling an extra rule can only grow the drop
// set. The final set is compared against the persisted flags and a
// no-change run is reported as such instead of rewriting identical
// state.
//
// The coherence rule may protect low-coherence pairs that a minimum
// spanning tree over inverse-coherence weights needs for connectivity;
// see MinSpanTree.
//
// No database code is allowed in this package; storage access goes
// through stackdb and arrives here as a Snapshot.
package network
