// Package trace records what the compiler does while it runs.
//
// Phases, source files, assemblies and single identifiers open spans; the
// events go to a stream (text or NDJSON), a ring buffer kept for crash
// dumps, a zap logger, or any combination of them:
//
//	t, _ := trace.New(trace.Config{Level: trace.LevelPhase, Mode: trace.ModeLog, Logger: log})
//	ctx = trace.WithTracer(ctx, t)
//
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "declare", 0)
//	defer span.End("")
//
// A tracer whose level is LevelOff costs one interface call per span.
package trace
