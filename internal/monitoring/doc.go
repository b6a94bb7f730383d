// Package monitoring is the client for the remote consumption monitoring
// service, which stores the raw meter samples VoltWatch aggregates into
// hourly reports.
//
// The monitoring service reports consumption amounts as text. Some
// deployments send them as JSON numbers instead, so Amount accepts both
// forms and defers numeric parsing to the caller, which decides how to
// treat values that do not parse.
package monitoring
