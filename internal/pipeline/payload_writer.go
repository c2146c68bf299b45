package pipeline

// PayloadWriter delivers encoded batch payloads. It is never called with an
// empty slice.
type PayloadWriter interface {
	WritePayloads(payloads [][]byte) error
	Close() error
}
