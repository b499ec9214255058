// Package aggregates defines the enrollment and progress write boundaries and
// the error codes they report.
//
// Contracts here carry no persistence details. Implementations live in
// internal/data/aggregates.
package aggregates
