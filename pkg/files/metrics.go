package files

import "time"

// Metrics records files service activity. A nil Metrics in Config selects
// the no-op implementation.
type Metrics interface {
	// ObserveOperation records one service call. err is the error returned
	// to the caller, nil on success.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes moved by operation.
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}
