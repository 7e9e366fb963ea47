// Package pkg provides the core libraries for Assertscan.
//
// # Overview
//
// Assertscan takes a list of PyPI package names, resolves each to its
// source (a repository URL or a source distribution), downloads it, and
// scans every Python file for assert statements. The pkg directory is
// organized by pipeline stage:
//
//  1. [pypi] - Registry client and source-location heuristics
//  2. [source] - Acquisition: shallow clones and archive extraction
//  3. [scan] - Tree-sitter based assert extraction
//  4. [sink] - Result persistence (NDJSON file, optional MongoDB)
//  5. [pipeline] - Orchestration: per-package state machine and the
//     bounded worker pool
//
// Supporting packages: [cache] for registry response caching, [progress]
// for pluggable progress reporting, [errors] for structured error codes,
// and [buildinfo] for version metadata.
//
// # Architecture
//
// The typical data flow:
//
//	Package list (JSON)
//	         ↓
//	pypi.Locator ── registry metadata ──→ source.Location
//	         ↓
//	source.Acquirer ── clone / download+extract ──→ source tree
//	         ↓
//	scan.Scanner ── tree-sitter parse ──→ assert statements
//	         ↓
//	sink.Sink ── one JSON line per package
//
// The pipeline package ties the stages together; failures in one package
// never affect another.
package pkg
