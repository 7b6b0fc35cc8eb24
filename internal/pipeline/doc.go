// Package pipeline runs a packagebot run as a sequence of steps and holds
// the concurrent harvesting machinery the steps use.
//
// A run is login, harvest, publish, logout. Each step receives the shared
// RunReport and records what it did. The pipeline stops at the first failing
// step, so a failed login means the tree is never scanned.
//
// Harvesting fans the scanner's discoveries out to a fixed Pool of workers.
// Workers either pull from one shared queue or each take a contiguous slice
// from Partition. Every worker hands its records to the Aggregator exactly
// once, and the coordinator blocks on the Aggregator until all of them have.
// Publishing then runs on the coordinating goroutine only, because the wiki
// session is not safe for concurrent use.
package pipeline
