// Package handlers provides the HTTP handlers for the photo wallet API.
//
// It includes handlers for:
//   - Listing, uploading, reordering and deleting active photos
//   - Serving originals, thumbnails and viewer renditions
//   - Archiving and restoring photos
//   - Viewer state and settings flags
//   - Hard reset
//   - Health checks, version and metrics
package handlers
