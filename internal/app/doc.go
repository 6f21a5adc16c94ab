// Package app provides the composition layer for the valuation engine.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── oracle/         # Oracle identity, weight, activity counters
//	│   └── valuation/      # Submissions, valuations, params, coded errors
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/
//	│   ├── registry/       # Admin-gated oracle registry operations
//	│   └── consensus/      # Submission intake and weighted-median consensus
//	├── httpapi/            # HTTP API handlers
//	├── system/             # Lifecycle management
//	└── metrics/            # Prometheus collectors
//
// The app package composes services with their stores and exposes them to
// cmd/valuationd. Business rules live in internal/app/services; this package
// only wires and manages lifecycle.
package app
