// Package server provides HTTP routing, middleware, and the sync API surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] with its method-aware patterns.
//
// # API Surface
//
// [API] registers the endpoints the CLI, cron schedulers, and local tooling
// drive:
//
//   - POST /api/sync dispatches a background sync run, returning 409 when a
//     run is already in flight
//   - GET /api/sync/status reports the run guard's current state and the
//     last report
//   - GET/POST /api/collections manage collections; creation provisions the
//     remote playlist best-effort
//   - GET /api/schedule and POST /api/schedule/activities manage the
//     recurring schedule
//   - GET/POST /api/log manage one-off activity log entries
//   - GET /api/report returns the most recent sync report
//   - GET /api/stats aggregates the sqlite archive when configured
//
// State-changing endpoints write through the same JSON document store the
// sync pipeline reads, so a run picks up API edits on its next start.
package server
