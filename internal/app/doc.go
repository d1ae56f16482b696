// Package app wires the freight analysis pipeline into its two front ends.
//
// Service is the pipeline orchestrator shared by both modes. One Run loads
// the requested sheets (through the cache when enabled), cleans them,
// scores quality, builds the summary, monthly and cost tables, renders the
// dashboard and report pages and saves the workbook and CSV. Each stage is
// a runner step with a fixed progress range:
//
//	load       10-30
//	clean      30-45
//	validate   45-55
//	summarize  55-62
//	monthly    62-70
//	cost       70-80
//	render     80-96
//	save       96-100
//
// Application is the web mode container. It owns the HTTP server, the job
// queue that executes Service runs, and the WebSocket hub that streams
// progress snapshots to browsers.
//
// # Progress fan-out
//
// Runner events go to every registered listener. In web mode the job queue
// copies them onto job records and the status broadcaster turns them into
// snapshots published on /ws/progress.
//
// # Shutdown
//
// Stop shuts the HTTP server down first, then cancels running jobs, stops
// the broadcaster and hub and finally flushes OpenTelemetry.
package app
