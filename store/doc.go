// Package store archives finished discussions.
//
// A Store keeps one orchestrator.Summary per discussion, messages
// included. Backends:
//   - Memory: for development and tests (default)
//   - File: one JSON document per discussion, for single-node deployments
//   - Redis: JSON documents with an optional TTL and a start-time index
//   - SQL: postgres, mysql or sqlite through GORM
//
// New selects the backend from config.StoreConfig.
package store
