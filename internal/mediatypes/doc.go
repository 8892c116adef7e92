// Package mediatypes defines the file-input contract for photos.
//
// This package exists as a dependency-free foundation that can be imported by
// the handlers, the inbox watcher, the CLI and the record store without
// creating import cycles.
//
// # Accepted types
//
// Only JPEG, PNG and WebP images are accepted:
//
//	if err := mediatypes.Validate(contentType, size, maxSize); err != nil {
//	    // errors.Is(err, mediatypes.ErrUnsupportedType) or ErrTooLarge
//	}
//
// # Detection
//
// Sniff inspects magic bytes, FromExtension maps a file name, and Resolve
// combines both with the declared type of an upload:
//
//	ct := mediatypes.Resolve(header.Get("Content-Type"), filename, data)
package mediatypes
