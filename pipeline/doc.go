// Package pipeline declares, compiles, and runs dataset synthesis
// pipelines.
//
// A pipeline is built fluently: register datasets, templates, generators,
// and embedders by name, pick a source (integer range or dataset rows),
// list the steps, and Build. Build compiles every step — expression
// parsing, conversation DSL parsing, name resolution — so configuration
// mistakes surface before the first record moves. Run then drives each
// source item through the step chain with a fixed-size worker pool.
//
// Per-record failures (filter misses, duplicates, validation failures,
// generation errors, panics in user steps) mark that record failed and the
// run continues; infrastructure failures (state store, output sink) abort
// the run.
package pipeline
