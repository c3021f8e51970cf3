package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes buffered logs and closes rotating log files before process exit.
// Prometheus is pull-based, so metrics need no flush. Call after in-flight requests drain.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	var syncErr error
	if logger != nil {
		syncErr = logger.Sync()
	}
	if err := closeFileSinks(); err != nil {
		return fmt.Errorf("close log files: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("flush logs: %w", syncErr)
	}
	return nil
}
