// Package rules holds the built-in preflight checks.
//
// Rules are immutable once constructed and implement one or more of the
// capabilities declared in package compliance. Rules that must remember
// earlier pages (ConsistentBoxes) do so through a fresh accumulator per run.
package rules
