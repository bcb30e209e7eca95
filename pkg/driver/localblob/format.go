package localblob

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic bytes and format version for the on-disk frame: the collection
// blob's wire/API shape is JSON, but what actually lands on disk is
// msgpack compressed with lz4 under this header.
const (
	magicBytes    = "GODB"
	formatVersion = 1
)

type fileHeader struct {
	Magic    [4]byte
	Version  uint8
	Flags    uint8
	Reserved [2]byte
}

func writeHeader(w io.Writer) error {
	h := fileHeader{Magic: [4]byte{'G', 'O', 'D', 'B'}, Version: formatVersion}
	return binary.Write(w, binary.LittleEndian, h)
}

func readHeader(r io.Reader) error {
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("localblob: read header: %w", err)
	}
	if string(h.Magic[:]) != magicBytes {
		return fmt.Errorf("localblob: bad magic: expected %s, got %q", magicBytes, h.Magic[:])
	}
	if h.Version != formatVersion {
		return fmt.Errorf("localblob: unsupported format version %d", h.Version)
	}
	return nil
}
