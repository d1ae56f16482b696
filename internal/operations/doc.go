// Package operations runs an analysis as a sequence of named steps and
// reports its progress.
//
// Core Components:
//
// Runner: executes steps in order. Each step owns a slice of the overall
// 0-100 progress range; a step reports its own progress as a fraction and
// the runner maps it into that slice. Every step gets a span and a
// duration measurement, and failures are wrapped in an OperationError
// naming the step.
//
// StatusBroadcaster: keeps the latest snapshot of every run and pushes
// each change to the WebSocket hub. It also serves status lookups for
// the HTTP API.
//
// JobQueue: accepts analysis jobs from the web surface and runs them on a
// fixed pool of workers, keeping job records in a JobStore.
//
// Example usage:
//
//	runner := operations.NewRunner(logger, tracer, broadcaster)
//	state, err := runner.Execute(ctx, runID, []operations.Step{
//		operations.NewStep("load", "读取工作表", 10, 30, loadFn),
//		operations.NewStep("clean", "清洗数据", 30, 45, cleanFn),
//	})
package operations
