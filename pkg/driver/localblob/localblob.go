// Package localblob is a filesystem-backed implementation of
// driver.BlobStore: one file per handle, msgpack-encoded and
// lz4-compressed under a small magic-header frame (see format.go).
package localblob

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is a directory of .godb files, one per blob handle.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("localblob: create base dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(handle string) string {
	return filepath.Join(s.dir, handle+".godb")
}

// ReadFile implements driver.BlobStore.
func (s *Store) ReadFile(_ context.Context, handle string) ([]byte, error) {
	f, err := os.Open(s.path(handle))
	if err != nil {
		return nil, fmt.Errorf("localblob: open %s: %w", handle, err)
	}
	defer f.Close()

	if err := readHeader(f); err != nil {
		return nil, err
	}
	compressed, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("localblob: read %s: %w", handle, err)
	}
	return decompress(compressed)
}

// WriteFile implements driver.BlobStore.
func (s *Store) WriteFile(_ context.Context, handle string, data []byte) error {
	return s.writeAtomic(s.path(handle), data)
}

// CreateFile implements driver.BlobStore. The handle is derived from
// name plus a short unique suffix so concurrent CreateFile calls for
// documents of the same collection name never collide.
func (s *Store) CreateFile(_ context.Context, name string, data []byte) (string, error) {
	handle := sanitize(name) + "-" + uuid.NewString()[:8]
	if err := s.writeAtomic(s.path(handle), data); err != nil {
		return "", err
	}
	return handle, nil
}

// DeleteFile implements driver.BlobStore.
func (s *Store) DeleteFile(_ context.Context, handle string) error {
	if err := os.Remove(s.path(handle)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("localblob: delete %s: %w", handle, err)
	}
	return nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	compressed, err := compress(data)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("localblob: create temp file: %w", err)
	}
	if err := writeHeader(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := f.Write(compressed); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("localblob: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("localblob: close %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("localblob: rename into place %s: %w", path, err)
	}
	return nil
}

// compress frames the payload as: marker byte (0 = stored raw, 1 =
// lz4), uint32 little-endian uncompressed length, body. The length is
// recorded so decompress can size its buffer exactly instead of
// guessing a compression ratio.
func compress(raw []byte) ([]byte, error) {
	msgpackData, err := msgpack.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("localblob: msgpack encode: %w", err)
	}
	out := make([]byte, lz4.CompressBlockBound(len(msgpackData)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(msgpackData, out, hashTable[:])
	if err != nil {
		return nil, fmt.Errorf("localblob: lz4 compress: %w", err)
	}

	frame := make([]byte, 5)
	binary.LittleEndian.PutUint32(frame[1:], uint32(len(msgpackData)))
	if n == 0 {
		// Incompressible/too-small input: lz4 signals this by writing
		// zero bytes. Store the msgpack bytes directly.
		frame[0] = 0
		return append(frame, msgpackData...), nil
	}
	frame[0] = 1
	return append(frame, out[:n]...), nil
}

func decompress(blob []byte) ([]byte, error) {
	if len(blob) < 5 {
		return nil, fmt.Errorf("localblob: truncated blob")
	}
	marker := blob[0]
	size := binary.LittleEndian.Uint32(blob[1:5])
	body := blob[5:]

	var msgpackData []byte
	if marker == 0 {
		msgpackData = body
	} else {
		decompressed := make([]byte, size)
		n, err := lz4.UncompressBlock(body, decompressed)
		if err != nil {
			return nil, fmt.Errorf("localblob: lz4 decompress: %w", err)
		}
		msgpackData = decompressed[:n]
	}

	var raw []byte
	if err := msgpack.Unmarshal(msgpackData, &raw); err != nil {
		return nil, fmt.Errorf("localblob: msgpack decode: %w", err)
	}
	return raw, nil
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "blob"
	}
	return b.String()
}
