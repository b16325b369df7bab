// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer free from ORM
// concerns; mappers convert between the two.
//
// Structure:
// - snapshot.go: daily snapshots and order counts
// - source_document.go: raw source documents consumed by the polling sources
package models
