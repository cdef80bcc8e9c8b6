// Package bind provides a data-binding engine for retained-mode UI code.
//
// # Overview
//
// A Service tracks dependency objects, the properties they own, data
// source objects, and the bindings between properties. When application
// code changes a property it calls Changed; ExecuteChanges, usually run
// once per update tick, then pushes the new values through the binding
// graph in well-defined phases.
//
// # Quick Start
//
//	svc := bind.NewService()
//
//	obj, _ := bind.NewObject(svc)
//	width := bind.NewProperty(obj, "Width", 0)
//	minWidth := bind.NewProperty(obj, "MinWidth", 0)
//
//	src, _ := width.HandleOnDemand()
//	minWidth.SetBinding(bind.OneWay(src))
//
//	width.Set(320)
//	svc.ExecuteChanges() // minWidth.Get() == 320
//
// # Bindings
//
// A one-way binding copies the source value into the target. A two-way
// binding keeps both sides reconciled: whichever side changed last is
// copied to the other, and members joined by chains of two-way bindings
// form a group that is reconciled as a whole. A Converter may translate
// values between the two property types.
//
// Bindings never form cycles. A property has at most one source, so the
// graph is a forest. Read-only properties can be sources but never
// targets. Observer properties can only be one-way targets; their
// callback runs after all values of a pass have settled.
//
// # Lifetime
//
// Handles are generation-checked. Destroying an instance stops it from
// being alive at once, while its record is released at the end of the
// next pass, so a handle queued earlier in the same pass is never
// dereferenced after it was freed.
//
// # Errors
//
// Misuse such as binding a read-only target or closing a cycle is
// rejected with a *UsageError and leaves the graph untouched. Failures of
// individual property methods during ExecuteChanges are isolated and
// returned as *PropagationError values once the pass completes.
//
// # Concurrency
//
// A Service is not safe for concurrent use. Only the package logger
// (SetLogger, Logger) may be used from any goroutine.
package bind
