// Package domain contains the pure conversation model: persona definitions
// (state graph + form schema + view map), live conversations, and the
// transition algorithm that advances them.
//
// Nothing in this package performs I/O. Persistence and presentation are
// reached through the interfaces in pkg/ports.
package domain
