package qovsrc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"qov/qoverr"
)

// MmapSource is a DataSource backed by a memory-mapped file, avoiding a
// read syscall per decoder access (Read still copies the requested range
// out of the mapping). The whole file is
// mapped once at open time and is fully available immediately, so
// Read/IsAvailable never report NotYetAvailable — this source is meant
// for complete, on-disk .qov files, not files still being written.
type MmapSource struct {
	f    *os.File
	data []byte
}

// OpenMmapSource mmaps path read-only for the lifetime of the returned
// source. Close must be called to release the mapping and the file.
func OpenMmapSource(path string) (*MmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := int(info.Size())
	if size == 0 {
		return &MmapSource{f: f, data: nil}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &MmapSource{f: f, data: data}, nil
}

// Close unmaps the file and closes the underlying descriptor.
func (s *MmapSource) Close() error {
	var err error
	if s.data != nil {
		err = unix.Munmap(s.data)
		s.data = nil
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *MmapSource) TotalSize() int64 { return int64(len(s.data)) }

func (s *MmapSource) IsAvailable(offset int64, length int) bool {
	return offset >= 0 && length >= 0 && offset+int64(length) <= int64(len(s.data))
}

func (s *MmapSource) Read(offset int64, length int) ([]byte, error) {
	if !s.IsAvailable(offset, length) {
		return nil, qoverr.ErrNotYetAvailable
	}
	// Copy out of the mapping: callers (bitio.Reader, the decoder's
	// frame buffers) retain slices past this call's lifetime, and the
	// mapping can be unmapped from under them on Close.
	out := make([]byte, length)
	copy(out, s.data[offset:offset+int64(length)])
	return out, nil
}
