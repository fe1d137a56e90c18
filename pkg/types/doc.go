// Package types holds the public contracts of the link-graph subsystem:
// row/column/table identifiers, link kinds, the error taxonomy, the cascade
// notification payload, and the replication sink interface.
//
// See docs/ARCHITECTURE § Public Contracts.
package types
