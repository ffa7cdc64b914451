// Package jobcontrol owns the durable per-signature job files: the
// append-only checkpoint log, the cached full item list, and the run lock
// that prevents two runs of the same signature from overlapping.
//
// The checkpoint log is the sole record of completion. An identifier is
// appended only after every artifact derived from it has been published, so
// a crash can cause re-publication of an item but never its loss.
package jobcontrol
