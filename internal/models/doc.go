// Package models defines domain entities for the Floe playlist curation service.
//
// The package contains two categories of types:
//
// 1. History and classification data:
//   - [Track] : One listening-history entry with a stable video ID
//   - [ClassificationResult] : Per-track categorizer output (energy, tempo, mood, target collection, confidence)
//
// 2. User configuration and run artifacts:
//   - [Collection] : A user-defined playlist bucket with an immutable key and a lazily provisioned remote ID
//   - [Schedule] / [Activity] / [TimeWindow] : The recurring weekly listening schedule
//   - [ActivityLogEntry] : One-off overrides that outrank the recurring schedule
//   - [SyncReport] / [StepResult] / [CollectionReport] : Date-keyed run reports with per-step outcomes
//
// All configuration types round-trip through JSON documents owned by the store
// package; reports additionally land in the sqlite history archive.
package models
