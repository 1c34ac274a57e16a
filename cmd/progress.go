package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/addrdiff/internal/pipeline"
	"github.com/sells-group/addrdiff/internal/resolve"
)

// zapReporter routes pipeline progress events to the global logger. The
// pipeline itself is logging-free; this is the only place its events become
// log lines.
func zapReporter(ev pipeline.Event) {
	fields := []zap.Field{
		zap.String("stage", ev.Stage),
		zap.String("date", ev.Date.Format(resolve.DateLayout)),
		zap.Int("records", ev.Records),
	}
	if ev.Elapsed > 0 {
		fields = append(fields, zap.Duration("elapsed", ev.Elapsed))
	}
	zap.L().Info("progress", fields...)
}
