// Package logging provides the coordinator's structured logger plus the two
// user-visible line formats the external interface contract requires:
// "[coordinator]: ..." for pipeline-level events and "[target: <key>]: ..."
// for per-target subprocess invocations and failures.
package logging
