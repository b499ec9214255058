// Package aggregates implements the enrollment and progress write boundaries
// over the table repos in internal/data/repos/learning.
//
// Every write runs under a per-enrollment lock and a single transaction, and
// reports its outcome through Hooks.
package aggregates
