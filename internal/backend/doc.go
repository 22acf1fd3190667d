// Package backend defines the transport contract between the batch engine and
// the remote CRUD backend, along with the response shape the engine reads.
// Implementations live in subpackages: formclient talks to the real backend
// over multipart HTTP, memory keeps records in process for tests and demos.
package backend
