// Package alerts fans consumption threshold alerts out to observers.
//
// When a device reports an hourly consumption above its configured
// ceiling, the coordinator hands an Event to the Dispatcher. The
// dispatcher pushes it to every connected WebSocket observer and,
// when Kafka is enabled, appends it to the durable alert topic so
// downstream services can replay alert history.
//
// Dispatch is best-effort towards each sink: a Kafka outage is logged
// and counted but never fails the ingest that produced the alert.
package alerts
