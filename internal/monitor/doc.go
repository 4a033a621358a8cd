// Package monitor implements the interactive NPU dashboard: a Bubble Tea
// model that polls the telemetry service on a fixed cadence, renders
// per-device cards with utilization history graphs, and lets the user
// inspect and terminate compute processes.
package monitor
