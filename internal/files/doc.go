// Package files finds spreadsheets on disk for batch imports.
package files
