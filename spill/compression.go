package spill

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/informationgrid/ingrid-search-utils/internal/conv"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how spilled bitmaps are compressed.
type Compression uint8

const (
	// CompressionNone stores bitmaps as written by roaring.
	CompressionNone Compression = 0
	// CompressionLZ4 favors speed. It is the default.
	CompressionLZ4 Compression = 1
	// CompressionZSTD favors ratio.
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// blockHeaderSize prefixes every payload: [rawSize uint32][storedSize uint32].
// storedSize 0 means the payload is stored raw.
const blockHeaderSize = 8

var errBlockCorrupt = errors.New("spill: corrupt payload block")

// compressBlock compresses data with c and prefixes the block header.
// Data that does not shrink by at least 10% is stored raw.
func compressBlock(data []byte, c Compression) ([]byte, error) {
	rawSize, err := conv.IntToUint32(len(data))
	if err != nil {
		return nil, fmt.Errorf("spill: payload: %w", err)
	}

	var packed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("spill: unknown %s", c)
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], rawSize)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], rawSize)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed))) // smaller than rawSize
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

func decompressBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, errBlockCorrupt
	}
	rawSize := binary.LittleEndian.Uint32(block[0:])
	storedSize := binary.LittleEndian.Uint32(block[4:])
	body := block[blockHeaderSize:]

	if storedSize == 0 {
		if uint32(len(body)) < rawSize {
			return nil, errBlockCorrupt
		}
		return body[:rawSize], nil
	}
	if uint32(len(body)) < storedSize {
		return nil, errBlockCorrupt
	}
	body = body[:storedSize]

	switch c {
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("spill: lz4: %w", err)
		}
		if uint32(n) != rawSize {
			return nil, errBlockCorrupt
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("spill: zstd: %w", err)
		}
		if uint32(len(out)) != rawSize {
			return nil, errBlockCorrupt
		}
		return out, nil
	default:
		return nil, fmt.Errorf("spill: compressed block with %s", c)
	}
}
