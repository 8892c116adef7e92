/*
Package workers sizes bounded parallel work and owns the application's
background workers.

Worker counts come from GOMAXPROCS rather than runtime.NumCPU, so they
respect container CPU limits:

	n := workers.ForCPU(8) // thumbnail derivation, at most 8
	n := workers.ForIO(16) // reading originals, at most 16

The WALLET_WORKERS environment variable pins the count for every call,
still subject to the per-call limit.

A Group holds the long-running workers (import queue, inbox watcher,
metrics collector). Hard reset stops the whole group before deleting data;
a reload builds a new one.
*/
package workers
