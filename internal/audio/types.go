package audio

// Frame is an immutable batch of samples in [-1,1] produced by a device
// callback. Sample rate and channel count are tracked by the producing
// stream, not carried per-frame.
type Frame = []float32

const (
	// QueueCapacity bounds every drop-on-full channel in the capture path:
	// mic samples and output bytes to the UI (the STT fork channel is
	// sized by its owner). Chosen so a slow downstream never stalls a
	// real-time callback.
	QueueCapacity = 100

	// ProcessorRecvTimeoutMs is how long the processor goroutine waits on
	// the mic queue before looping back to check the running flag.
	ProcessorRecvTimeoutMs = 50
)
