// Package session implements the perpetual TCP session loop of the node.
//
// The loop owns exactly one Session at a time. Each outer iteration
// establishes a connection bounded by a timeout, then exchanges raw bytes
// until the first failure, EOF, or idle timeout, at which point the Session is
// discarded and a fresh one is constructed. Every failure mode collapses into
// "discard and retry"; the loop never terminates on its own.
//
// The initiator role dials a fixed remote endpoint and repeatedly sends a
// fixed payload, reading back the peer's response with a pacing delay between
// writes. The responder role accepts a single inbound connection and echoes
// every chunk it reads, verbatim.
//
// The wire format is an unframed byte stream; each read result is an
// independent, possibly partial, chunk.
package session
