package walstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// segment is one open, append-only file within a WAL directory. Grounded
// on the teacher's wal/entry/wal.go segment abstraction, generalized to
// carry the buffered writer and byte count the CRC-framed encoder needs.
type segment struct {
	file   *os.File
	writer *bufio.Writer
	offset int64
}

func segmentName(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.wal", index))
}

func openSegment(dir string, index int) (*segment, error) {
	path := segmentName(dir, index)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{
		file:   f,
		writer: bufio.NewWriterSize(f, 1<<20),
		offset: info.Size(),
	}, nil
}

func (s *segment) append(data []byte) error {
	n, err := s.writer.Write(data)
	s.offset += int64(n)
	return err
}

func (s *segment) flush() error {
	return s.writer.Flush()
}

func (s *segment) close() error {
	if err := s.flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
