package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordCanisterAction("increment", true, 80*time.Millisecond)
	RecordCanisterAction("decrement", false, 12*time.Millisecond)
	RecordHTTPRequest("GET", "/health", 200, 2*time.Millisecond)
}
