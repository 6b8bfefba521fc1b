package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess    ResultLabel = "success"
	ResultFailed     ResultLabel = "failed"
	ResultNotFound   ResultLabel = "not_found"
	ResultIncomplete ResultLabel = "incomplete"
)

// AllocationSource tells whether an allocation reused a free record or minted one.
type AllocationSource string

const (
	SourceReused AllocationSource = "reused"
	SourceMinted AllocationSource = "minted"
)

// Recorder defines observability hooks for pool and daemon metrics.
type Recorder interface {
	IncAllocation(source AllocationSource)
	IncClaimConflict()
	IncRelease(result ResultLabel)
	IncReconcile(result ResultLabel)
	IncDaemonCall(method string, result ResultLabel)
	ObserveDaemonCall(method string, d time.Duration)
	SetFreeAddresses(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncAllocation(AllocationSource)          {}
func (NoopRecorder) IncClaimConflict()                       {}
func (NoopRecorder) IncRelease(ResultLabel)                  {}
func (NoopRecorder) IncReconcile(ResultLabel)                {}
func (NoopRecorder) IncDaemonCall(string, ResultLabel)       {}
func (NoopRecorder) ObserveDaemonCall(string, time.Duration) {}
func (NoopRecorder) SetFreeAddresses(int)                    {}
