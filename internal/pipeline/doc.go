// Package pipeline runs one streaming batch: a producer that transforms
// pending items into per-item staging directories, a consumer that publishes
// them and records completion in the checkpoint log, and the orchestrator
// that wires the two together through a bounded hand-off queue.
//
// The producer recomputes free queue capacity before every dispatch round
// and never dispatches more items than the queue can hold, so staging disk
// use is bounded by the queue capacity plus the in-flight publish batch.
// When pending work is exhausted it enqueues exactly one Done sentinel; the
// consumer terminates only after seeing it.
package pipeline
