// Package session serializes access to conversations. Events for the same
// conversation are strictly ordered; different conversations proceed in
// parallel. An optional distributed locker extends the guarantee across
// process replicas.
package session
