package resource

import "go.uber.org/zap"

// LogObserver writes handle lifecycle events to a zap logger. Failed drops
// log at warn level, everything else at debug.
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger.Named("handles")}
}

func (o *LogObserver) OnHandleEvent(e Event) {
	fields := []zap.Field{
		zap.String("event", e.Type.String()),
		zap.String("type", e.TypeName),
		zap.Stringer("id", e.ID),
		zap.Uint64("native", e.Native),
	}
	if e.Type == EventBorrowed || e.Type == EventBorrowReturned || e.Borrows > 0 {
		fields = append(fields, zap.Int("borrows", e.Borrows))
	}
	if e.Err != nil {
		o.logger.Warn("handle event failed", append(fields, zap.Error(e.Err))...)
		return
	}
	o.logger.Debug("handle event", fields...)
}
