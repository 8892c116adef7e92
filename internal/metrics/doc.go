// Package metrics provides Prometheus instrumentation for the photo wallet.
//
// All metrics are prefixed with "photo_wallet_". They fall into a few groups:
//
//   - HTTP: request counts, durations, in-flight requests, upload rejections
//   - Record store: query counts/durations, transaction outcomes, records
//     upgraded from older schema versions, stored content size
//   - Thumbnails: generations by backend and status, generation duration,
//     viewer rendition cache outcomes
//   - Photo store: operation outcomes, absorbed persistence failures, active
//     and archived photo gauges, duplicate checks, import queue outcomes,
//     hard reset runs
//
// The Collector refreshes the gauges from a StatsProvider on an interval.
package metrics
