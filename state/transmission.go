package state

// TransmissionRecord is one entry in the duty-cycle ledger's sliding-window
// transmission queue.
type TransmissionRecord struct {
	RecordedAtMs uint64
	AirtimeMs    uint32
}
