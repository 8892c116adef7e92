/*
Package wallet implements the Photo Store: the controller that owns the
in-memory active and archived photo lists and keeps them consistent with
the record store.

Active photos carry a dense display order 0..n-1 and never exceed the
configured capacity. Archiving moves a photo out of the active list and
renumbers the rest; restoring appends it back at the end. The viewer
state (open flag and current index) lives here too.

How an in-memory change and its persistence are sequenced is decided by a
Policy. Optimistic applies first and logs persistence failures;
ConfirmFirst persists first and returns failures.

Queue feeds uploads to the store one at a time so that batch imports see
the capacity and duplicate effects of earlier files in the same batch.
*/
package wallet
