// Package blobcollection provides a date-partitioned document store layered
// on a blob object store, with per-partition view caching and debounced
// background persistence.
//
// # Architecture
//
// Documents are JSON objects keyed by a 24-hex id whose first 8 hex digits
// encode the creation second, so ids sort chronologically and each document
// lands in the day partition its id encodes:
//
//	┌─────────────────────────────────────┐
//	│          Collection                 │  Routing, cutoff resolution,
//	│   (Put, Get, List, Delete)          │  cross-day backfill
//	└─────────────────────────────────────┘
//	           ↓ delegates to
//	┌─────────────────────────────────────┐
//	│          Partitions                 │  One per calendar day,
//	│   (view cache, debounced saver)     │  created on demand
//	└─────────────────────────────────────┘
//	           ↓ read and write via
//	┌─────────────────────────────────────┐
//	│          Blob Store                 │  NATS JetStream ObjectStore
//	│   (Get, Put, Delete, List)          │  or in-memory test store
//	└─────────────────────────────────────┘
//
// Each partition keeps an in-memory cache of view projections keyed by
// document id, etag, and view version. The cache is persisted to a single
// view blob per day through a debounced saver that coalesces bursts of
// writes into at most one extra save. A manifest blob lists the days that
// hold documents; when absent it is rebuilt from a listing of the view
// blobs.
//
// # Packages
//
// Core:
//   - collection: documents, partitions, views, manifest, the saver
//   - docid: time-prefixed document id generation and decoding
//   - blobstore: the object store contract and the in-memory test store
//   - blobstore/natsobj: JetStream ObjectStore backed implementation
//
// Infrastructure:
//   - metric: Prometheus metrics registry and HTTP endpoint
//   - errors: structured error handling with severity classification
//   - pkg/cache: generic LRU and TTL caches
//   - pkg/retry: retry policies and jittered delays
//
// # Binary
//
// cmd/blobcol is a command line client:
//
//	blobcol -c config.yaml put '{"name":"example"}'
//	blobcol -c config.yaml get 65a1b2c3aabbccddee001122
//	blobcol -c config.yaml list -limit 20
package blobcollection
