// Package app wires the gradebook together and runs it.
//
// Startup order:
//
//  1. Load configuration (defaults, then the YAML file, then GRADEBOOK_* env)
//  2. Initialize logging and OpenTelemetry
//  3. Open the store and merge in the JSON backup if one exists
//  4. Build services and HTTP handlers
//  5. Serve until SIGINT or SIGTERM
//
// On shutdown the server drains, the pending backup snapshot is written,
// the database is closed and telemetry is flushed.
package app
