// Package calc holds the metric primitives the gradebook is built on:
// null-aware averages, most-recent selection, progress toward a target, and
// color banding.
//
// Every function is pure. A missing value is an invalid null.Float64, never
// zero and never NaN, so callers can tell "no data" from "scored 0".
package calc
