// Package internal documents the EventHub client internals.
//
// The internal tree is organized by responsibility:
// - session, access, auth: who is using the client and where they may go
// - domain/events, backend: local events, their validation, and the HTTP backend
// - catalog: the external read-only catalog
// - listing: paging, search, and the rule that drops superseded replies
// - form: the admin create/edit workflow
// - config, metrics, telemetry, problem, sanitize, blob: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
