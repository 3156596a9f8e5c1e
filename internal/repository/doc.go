// Package repository defines the data access interfaces for feaprep.
//
// The only persisted entity is the conversion run. The catalog remembers
// what was converted, with which mesher, and the digest of the tables it
// produced, so a later run of an unchanged model can be checked for drift.
//
// # SQLite Implementation
//
// The sqlite subpackage implements Catalog on a single SQLite file using the
// pure Go modernc.org/sqlite driver. The schema is created on open.
package repository
