// Package shared holds helpers used across the gradebook packages that
// belong to no single layer.
//
// The testutil subpackage provides a capturing slog handler and domain
// fixtures for tests. It must not import any internal package so that
// every package's tests can use it.
package shared
