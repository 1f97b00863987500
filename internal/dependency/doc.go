// Package dependency provides a small directed-acyclic-graph helper for
// answering dependency and dependent queries over a manifest's services.
//
// It backs the "graph" CLI command's preview of deployment order, separate
// from the scheduler's own (per-transition) traversal in internal/scheduler
// — this package answers static queries against a manifest alone, with no
// target or activation state involved.
package dependency
