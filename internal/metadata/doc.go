// Package metadata describes the entities the remote backend manages: their
// primary keys, unique fields, fields required on creation and optional
// single-file attachment rules. A Registry is built once and never mutated;
// lookups for unknown entities return a permissive empty description.
package metadata
