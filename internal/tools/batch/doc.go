// Package batch runs a set of independent operations with bounded
// concurrency and collects one Result per operation in input order.
//
// Failures of individual operations are recorded in their Result; only
// cancellation of the surrounding context fails the whole batch.
package batch
