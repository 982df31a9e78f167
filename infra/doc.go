// Package infra contains technical adapters such as the LP solver backend,
// metrics exporters and the audit store. These packages should depend only
// on the interfaces defined in the core packages.
package infra
