// Package qovsrc provides the DataSource abstraction consumed by the
// streaming decoder (spec §4.8): a byte range source that may report
// bytes as not-yet-available, so a decoder can be driven against a
// file still being written or a download still in flight.
package qovsrc

import "qov/qoverr"

// DataSource is the streaming decoder's sole dependency on the outside
// world. Read blocks until length bytes starting at offset are
// available or returns qoverr.ErrNotYetAvailable if the source knows
// they never will be without further external action (e.g. the caller
// must feed more bytes in first). TotalSize returns -1 when the total
// length is not yet known (e.g. a download still in progress).
type DataSource interface {
	TotalSize() int64
	Read(offset int64, length int) ([]byte, error)
	IsAvailable(offset int64, length int) bool
}

// MemorySource is a DataSource backed by an in-memory byte slice. All
// bytes are available immediately.
type MemorySource struct {
	data []byte
}

// NewMemorySource wraps data as a DataSource.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func (s *MemorySource) TotalSize() int64 { return int64(len(s.data)) }

func (s *MemorySource) IsAvailable(offset int64, length int) bool {
	return offset >= 0 && length >= 0 && offset+int64(length) <= int64(len(s.data))
}

func (s *MemorySource) Read(offset int64, length int) ([]byte, error) {
	if !s.IsAvailable(offset, length) {
		return nil, qoverr.ErrNotYetAvailable
	}
	return s.data[offset : offset+int64(length)], nil
}
