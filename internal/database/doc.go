// Package database provides the SQLite record store for the photo wallet.
//
// Each photo record holds the original image bytes, an optional derived
// thumbnail, its display order, creation time and archive state. Records
// are keyed by an opaque string id.
//
// The store handles:
//   - Listing active photos by display order and archived photos by recency
//   - Partial updates and atomic batch reordering
//   - Upgrading records written by older layouts at open time
//
// The database uses WAL mode and adds missing columns to databases created
// by older builds.
package database
