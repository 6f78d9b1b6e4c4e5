// Package diag defines the diagnostic model shared by every generation stage.
//
// A generation run never stops on data-quality problems. The descriptor
// parser, the scope manager, the template expander and the emitter report
// what they find through a Reporter, usually a BagReporter (optionally behind
// a DedupReporter), and the caller inspects the Bag after the run.
//
// Diagnostic carries a Severity, a numeric Code with a stable string ID
// (TPL1xxx template, PAR2xxx parameter, IO4xxx file access, PRJ5xxx project
// manifest, OBS6xxx observability), a message, the primary source.Span and
// optional notes pointing at related locations such as the first declaration
// of a duplicated parameter.
//
// SevError is reserved for structural failures: unreadable files,
// unterminated directives, missing sub-templates and inclusion depth overflow.
// Those are also returned as Go errors by the stage that hit them; the
// diagnostic only makes them visible in the same report as the warnings.
//
// Package diag does no formatting beyond the short one-line form used by
// tests and the --format=short flag. Pretty and JSON rendering live in
// internal/diagfmt.
package diag
