package wire

// Reply statuses produced by the bridge firmware.
const (
	// StatusOK indicates the command completed successfully.
	StatusOK = "OK"

	// StatusPaused indicates a register transaction was rejected because
	// the link is paused. Callers must resume before retrying.
	StatusPaused = "PAUSED"
)
