package formats

import (
	"encoding/binary"
	"fmt"
)

// voxChunkHeaderSize is the size of a chunk header: tag, content length, children length.
const voxChunkHeaderSize = 12

// VOXReader is a forward-only cursor over an in-memory VOX buffer.
// The underlying slice is never copied or modified; returned byte slices
// alias the input.
type VOXReader struct {
	data []byte
	off  int
}

// NewVOXReader returns a reader positioned at the start of data.
func NewVOXReader(data []byte) *VOXReader {
	return &VOXReader{data: data}
}

// Offset returns the current read position.
func (r *VOXReader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *VOXReader) Remaining() int {
	return len(r.data) - r.off
}

// EOF reports whether every byte has been consumed.
func (r *VOXReader) EOF() bool {
	return r.off >= len(r.data)
}

// ReadBytes returns exactly n bytes and advances the cursor.
func (r *VOXReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d at offset %d", ErrInvalidVOXFormat, n, r.off)
	}
	if n > r.Remaining() {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedVOXData, n, r.off, r.Remaining())
	}
	b := r.data[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (r *VOXReader) Skip(n int) error {
	_, err := r.ReadBytes(n)
	return err
}

// ReadInt32 reads a little-endian signed 32-bit integer.
func (r *VOXReader) ReadInt32() (int32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// ReadUint8 reads a single unsigned byte.
func (r *VOXReader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// readLength reads an int32 length prefix and rejects negative values.
func (r *VOXReader) readLength(what string) (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", what, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative %s %d", ErrInvalidVOXFormat, what, n)
	}
	return int(n), nil
}

// VOXChunkHeader is the fixed 12-byte header preceding every chunk.
type VOXChunkHeader struct {
	Tag          string
	ContentSize  int32
	ChildrenSize int32
}

// ReadChunkHeader reads a chunk header without consuming the content.
func (r *VOXReader) ReadChunkHeader() (VOXChunkHeader, error) {
	b, err := r.ReadBytes(voxChunkHeaderSize)
	if err != nil {
		return VOXChunkHeader{}, fmt.Errorf("reading chunk header: %w", err)
	}
	return VOXChunkHeader{
		Tag:          string(b[0:4]),
		ContentSize:  int32(binary.LittleEndian.Uint32(b[4:8])),
		ChildrenSize: int32(binary.LittleEndian.Uint32(b[8:12])),
	}, nil
}

// ReadChunk reads a chunk header and its content. The children size is
// accepted but not consumed separately: nested chunks follow in the stream.
func (r *VOXReader) ReadChunk() (string, []byte, error) {
	h, err := r.ReadChunkHeader()
	if err != nil {
		return "", nil, err
	}
	if h.ContentSize < 0 {
		return "", nil, fmt.Errorf("%w: chunk %q has negative content size %d", ErrInvalidVOXFormat, h.Tag, h.ContentSize)
	}
	content, err := r.ReadBytes(int(h.ContentSize))
	if err != nil {
		return "", nil, fmt.Errorf("chunk %q content: %w", h.Tag, err)
	}
	return h.Tag, content, nil
}

// VOXDictEntry is one key/value pair of a VOX dictionary.
type VOXDictEntry struct {
	Key   string
	Value []byte
}

// VOXDict is a VOX dictionary in file order. Order matters for MATL
// chunks, so entries are kept as a slice rather than a map.
type VOXDict []VOXDictEntry

// Get returns the value for key and whether it was present.
// If the key repeats, the last occurrence wins.
func (d VOXDict) Get(key string) ([]byte, bool) {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].Key == key {
			return d[i].Value, true
		}
	}
	return nil, false
}

// Collapse merges repeated keys: each key stays at its first position and
// takes its last value.
func (d VOXDict) Collapse() VOXDict {
	pos := make(map[string]int, len(d))
	out := make(VOXDict, 0, len(d))
	for _, e := range d {
		if j, ok := pos[e.Key]; ok {
			out[j].Value = e.Value
			continue
		}
		pos[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}

// ReadDict reads a length-prefixed dictionary:
// int32 count, then count x (int32 key length, key, int32 value length, value).
func (r *VOXReader) ReadDict() (VOXDict, error) {
	count, err := r.readLength("dict size")
	if err != nil {
		return nil, err
	}
	// Each entry needs at least 8 bytes of length prefixes.
	if count > r.Remaining()/8 {
		return nil, fmt.Errorf("%w: dict declares %d entries with %d bytes left", ErrTruncatedVOXData, count, r.Remaining())
	}

	dict := make(VOXDict, 0, count)
	for i := 0; i < count; i++ {
		keyLen, err := r.readLength("dict key length")
		if err != nil {
			return nil, err
		}
		key, err := r.ReadBytes(keyLen)
		if err != nil {
			return nil, fmt.Errorf("dict entry %d key: %w", i, err)
		}
		valLen, err := r.readLength("dict value length")
		if err != nil {
			return nil, err
		}
		val, err := r.ReadBytes(valLen)
		if err != nil {
			return nil, fmt.Errorf("dict entry %d value: %w", i, err)
		}
		dict = append(dict, VOXDictEntry{Key: string(key), Value: val})
	}
	return dict, nil
}
