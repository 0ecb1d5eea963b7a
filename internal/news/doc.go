// Package news defines the core types and interfaces shared across the
// ingestion and sync subsystems: article records, extraction outcomes,
// per-store sync state, and the contracts the pipeline orchestrates.
package news
