// Package escore implements the client-side request transport for a
// clustered search engine: node selection and failover, optional cluster
// sniffing and per-node pinging, and the response materialisation pipeline
// that turns a raw HTTP exchange into a typed, audited result.
//
// The core entry point is the generic function Perform, called with a
// *Transport, which drives the RequestPipeline for one logical call across
// a bounded retry budget.
package escore
