// Package logging wires the structured-logging ambient stack: the
// teacher's own pairing of github.com/joeycumines/logiface (the facade)
// with github.com/joeycumines/stumpy (a zero-allocation JSON backend),
// exactly as exercised in logiface-stumpy/example_test.go. The
// components that log (System, via SetLogger, and the real backend, via
// NewEnv) take a *Logger constructed here rather than reaching for
// log.Printf directly; sim.Driver and mc.Checker do not log.
package logging

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type every component in this module
// logs through.
type Logger = logiface.Logger[*stumpy.Event]

// Builder is the chainable structured-field builder Logger.Info() and
// friends return.
type Builder = logiface.Builder[*stumpy.Event]

// New returns a Logger writing newline-delimited JSON to w, in the same
// style eventloop/logging.go structures its entries - handed to
// System.SetLogger or real.NewEnv, never a bare log.Printf call.
func New(w io.Writer) *Logger {
	return stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w)))
}

// Nop returns a Logger that discards everything - the default for
// components constructed without an explicit logger, so logging is
// opt-in without requiring a nil check at every call site.
func Nop() *Logger {
	return stumpy.L.New()
}

// WithEvent annotates b with the event_id/kind fields every component
// that logs around an evmgr event record should include, per SPEC_FULL
// §1's field-naming convention (node, address, event_id, kind).
func WithEvent(b *Builder, eventID uint64, kind string) *Builder {
	return b.Uint64(`event_id`, eventID).Str(`kind`, kind)
}

// WithAddress annotates b with node/process fields identifying the
// process an entry concerns.
func WithAddress(b *Builder, node, process string) *Builder {
	return b.Str(`node`, node).Str(`address`, process)
}
