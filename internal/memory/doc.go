// Package memory configures the Go memory limit from the container
// environment and provides a Monitor that holds back thumbnail generation
// while heap usage is critical.
//
// Decoding a large source image briefly needs far more memory than the
// cached result, so the generation pool consults Monitor.WaitIfPaused before
// each task. Once usage crosses CriticalWaterMark the monitor pauses workers
// and forces a GC; they resume when usage falls below HighWaterMark. Callers
// on the render path are never affected because they only enqueue work.
//
//	memory.ConfigureFromEnv()
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
package memory
