package pipeline

// RawWriter keeps the raw messages of a failed batch for replay.
type RawWriter interface {
	WriteRawMessages(messages [][]byte) error
	Close() error
}
