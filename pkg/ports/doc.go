// Package ports declares the boundary interfaces of the engine: persistence
// for personas and conversations, presentation of resolved views, and
// distributed locking. Adapters live under pkg/adapters.
package ports
