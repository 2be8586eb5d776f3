package spill

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/informationgrid/ingrid-search-utils/bitmap"
	"github.com/informationgrid/ingrid-search-utils/codec"
	"github.com/informationgrid/ingrid-search-utils/internal/conv"
	"github.com/informationgrid/ingrid-search-utils/internal/hash"
	"github.com/informationgrid/ingrid-search-utils/model"
)

// Frame layout:
//
//	magic     [4]byte "IGFC"
//	version   uint8
//	comp      uint8
//	codecLen  uint8
//	codec     [codecLen]byte
//	headerLen uint32
//	header    [headerLen]byte   codec-encoded frameHeader
//	crc       uint32            CRC32-C of the payload block
//	payload   compressed block of concatenated roaring bitmaps
var frameMagic = [4]byte{'I', 'G', 'F', 'C'}

const frameVersion = 1

// ErrCorrupt is returned when a spilled blob cannot be decoded.
var ErrCorrupt = errors.New("spill: corrupt frame")

type frameHeader struct {
	Name string `json:"name"`
	// Lengths holds the serialized size of each shard bitmap, -1 for a nil shard.
	Lengths []int64 `json:"lengths"`
}

func encodeFrame(w io.Writer, class *model.FacetClass, comp Compression, c codec.Codec) error {
	sets := class.Bitsets()
	hdr := frameHeader{Name: class.Name(), Lengths: make([]int64, len(sets))}

	var raw bytes.Buffer
	for i, b := range sets {
		if b == nil {
			hdr.Lengths[i] = -1
			continue
		}
		n, err := b.WriteTo(&raw)
		if err != nil {
			return fmt.Errorf("spill: serialize shard %d: %w", i, err)
		}
		hdr.Lengths[i] = n
	}

	block, err := compressBlock(raw.Bytes(), comp)
	if err != nil {
		return err
	}
	hdrBytes, err := c.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("spill: encode header: %w", err)
	}
	hdrLen, err := conv.IntToUint32(len(hdrBytes))
	if err != nil {
		return fmt.Errorf("spill: header: %w", err)
	}
	name := c.Name()
	if len(name) > 255 {
		return fmt.Errorf("spill: codec name %q too long", name)
	}

	prefix := make([]byte, 0, 4+3+len(name)+4)
	prefix = append(prefix, frameMagic[:]...)
	prefix = append(prefix, frameVersion, byte(comp), byte(len(name)))
	prefix = append(prefix, name...)
	prefix = binary.LittleEndian.AppendUint32(prefix, hdrLen)

	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], hash.CRC32C(block))

	for _, part := range [][]byte{prefix, hdrBytes, crc[:], block} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

func decodeFrame(data []byte) (*model.FacetClass, error) {
	if len(data) < 7 || !bytes.Equal(data[:4], frameMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if data[4] != frameVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[4])
	}
	comp := Compression(data[5])
	nameLen := int(data[6])
	pos := 7
	if len(data) < pos+nameLen+4 {
		return nil, fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	c, ok := codec.ByName(string(data[pos : pos+nameLen]))
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, data[pos:pos+nameLen])
	}
	pos += nameLen

	hdrLen := int(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4
	if len(data) < pos+hdrLen+4 {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	var hdr frameHeader
	if err := c.Unmarshal(data[pos:pos+hdrLen], &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	pos += hdrLen

	sum := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	block := data[pos:]
	if hash.CRC32C(block) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	raw, err := decompressBlock(block, comp)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}

	sets := make(bitmap.Set, len(hdr.Lengths))
	var off int64
	for i, n := range hdr.Lengths {
		if n < 0 {
			continue
		}
		if int64(len(raw))-off < n {
			return nil, fmt.Errorf("%w: shard %d truncated", ErrCorrupt, i)
		}
		b := bitmap.New()
		if _, err := b.ReadFrom(bytes.NewReader(raw[off : off+n])); err != nil {
			return nil, fmt.Errorf("%w: shard %d: %v", ErrCorrupt, i, err)
		}
		sets[i] = b
		off += n
	}
	return model.NewFacetClass(hdr.Name, sets), nil
}
