// Package messaging provides a broker-agnostic API for publishing domain
// events.
//
// The goal is to keep business code independent from the underlying messaging
// system (Kafka, NATS, NSQ, Google Pub/Sub, etc). Implementations can be
// swapped without changing use-case code, as long as it relies on the
// Messaging interface.
package messaging
