/*
Package filesystem wraps the file reads used by imports with retries for
stale file handle errors (ESTALE), which an inbox or import source on a
network share can return after a server-side change.

Only ESTALE is retried. Other errors are returned at once. Retries back off
exponentially from InitialBackoff up to MaxBackoff:

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	data, err := filesystem.ReadFileWithRetry(path, maxSize, filesystem.DefaultRetryConfig())

Operations are timed and counted per volume. The volume label comes from a
VolumeResolver that maps the configured directories (data, database, cache,
inbox) to names; the application installs one at startup with
SetDefaultVolumeResolver.
*/
package filesystem
