// Package riglogic evaluates a document's behavior graph: control values
// in, joint transform deltas, blend-shape weights, and animated-map
// weights out.
//
// The work is split between Rig and Instance. A Rig is the compiled,
// immutable form of one document's graph: it re-validates the graph,
// resolves solver radii, and factorizes the pose kernel matrices of
// interpolative RBF solvers once. An Instance owns every buffer one
// evaluation needs, allocated up front, so Evaluate performs no
// allocation and is cheap enough to run once per animation frame.
//
// Evaluation order is a contract, not an implementation detail: clamp
// controls, derive pose-space expressions, apply RBF solvers, apply
// direct behaviors, then clamp shape and map weights. A fixed order makes
// identical inputs produce bit-identical outputs. Because the graph is
// rejected at build time for dangling references or expression cycles,
// Evaluate itself has no error path.
//
// Instances are not safe for concurrent use; share the Rig and give each
// goroutine its own Instance.
package riglogic
