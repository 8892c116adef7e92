// Package media derives images from stored photo originals.
//
// The ThumbnailGenerator produces the fixed 400×400 JPEG preview by cropping
// the centred square of the source and resampling it. It uses
// disintegration/imaging by default and libvips when enabled and available,
// falling back to imaging on any vips failure.
//
// DisplayRendition produces the screen-sized JPEG shown by the full-screen
// viewer.
//
// Sources are decoded with EXIF auto-orientation. Very large sources are
// downscaled before processing to bound memory use.
package media
