// Package vdom provides the virtual tree and the reconciler.
//
// A VNode is an element, a text node, an empty placeholder or a component
// invocation. Trees are immutable once built: every render pass builds a
// new tree and reuses unchanged subtrees by pointer.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    Ul(Range(items, func(it Item, _ int) *VNode {
//	        return Li(Key(it.ID), it.Label)
//	    })),
//	    OnClick(handler),
//	)
//
// # Identity
//
// Every node has a SlotID built from its ancestors' identities plus its own
// type and either its key or its sibling index. Identities decides which
// sibling in the previous tree a node corresponds to; the component runtime
// binds instance state to the same identity.
//
// # Reconciliation
//
// Reconcile compares two expanded trees and returns Patch operations that
// transform the host from the first into the second. Patches address host
// nodes by Path, and each path is valid at the moment its patch is applied.
// Components are transparent to the host: a component occupies exactly the
// host position of the node it rendered.
package vdom
