// Package driving defines interfaces that external actors (CLI, API
// layers, watchers) use to interact with core services. These are the
// "driving" ports in hexagonal architecture terminology - they drive the
// application. Presentation layers call these and never touch index or
// cache internals directly.
//
// Implementations of these interfaces live in internal/core/services.
package driving
