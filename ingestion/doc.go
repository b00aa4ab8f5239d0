// Package ingestion turns submitted documents into analyzed, resonance-linked
// library entries.
//
// The Pipeline drains a FIFO JobQueue with a single worker, so jobs never
// overlap and each job's resonance search sees exactly the documents
// persisted before it. Each job moves through these states:
//
//	queued → embedding → analyzing → resonance-search → concept-bridging →
//	balance-update → graph-weave → persisted
//
// or ends in failed. Fetch, embedding and persistence failures are terminal
// for the job. Analysis failures fall back to core.FallbackAnalysis, and
// resonance, bridge and graph failures are logged while the job continues.
// The document, its bridges and the owner's updated balance are committed in
// one storage transaction.
//
// Submission is fire-and-forget: Enqueue returns a JobHandle immediately and
// progress is observed through Status or Wait.
package ingestion
