// Package service implements the conversion pipeline of feaprep.
//
// This package coordinates the stages that turn a model document into solver
// tables, publishes the artifacts as a unit and records every run in the
// catalog.
//
// # Services
//
// ConversionService runs one document through validation, geometry script
// generation, meshing, conversion and publishing. Sweep runs many
// conversions concurrently with a bounded number of workers.
//
// # Event System
//
// Every stage publishes an event via EventBus so the command surface can
// report progress. Event types include run start, each completed stage, drift
// detection and failure.
//
// # Drift
//
// A run's fingerprint digests the normalized document and the geometry
// script. When a successful run with the same fingerprint and mesher already
// exists and its table digest differs, the new run is flagged as drifted.
package service
