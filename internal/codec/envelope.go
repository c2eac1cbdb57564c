// Package codec implements the on-disk frame format for the index store:
// a magic-tagged, versioned, checksummed container around zstd-compressed
// payloads. A corrupt frame is detected by checksum mismatch rather than by
// a decompression panic, so a caller can always fall back to a full rebuild
// instead of crashing on a truncated or bit-flipped file.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// FrameType discriminates the payload carried by a frame.
type FrameType byte

const (
	FramePostings FrameType = 0x01
	FrameDict     FrameType = 0x02
	FrameMeta     FrameType = 0x03
)

func (ft FrameType) String() string {
	switch ft {
	case FramePostings:
		return "postings"
	case FrameDict:
		return "dict"
	case FrameMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// fileMagic identifies a sift index file. formatVersion is bumped whenever
// the frame payload encoding changes in a way old readers can't tolerate.
var fileMagic = []byte("SIFX")

const formatVersion = 0x01

// frameEnvSize is the fixed envelope every frame carries ahead of its
// compressed payload: type(1) + checksum(8, xxh3 of the compressed bytes) +
// compressedLen(4) + rawLen(4).
const frameEnvSize = 1 + 8 + 4 + 4

// WriteEnvelope prepends a frame envelope to compressed, checksumming the
// compressed bytes so corruption introduced after compression (truncation,
// bit flips on disk) is caught before zstd ever sees the bytes.
func WriteEnvelope(ft FrameType, compressed []byte, rawLen int) []byte {
	env := make([]byte, 0, frameEnvSize+len(compressed))
	env = append(env, byte(ft))
	sum := xxh3.Hash(compressed)
	env = binary.LittleEndian.AppendUint64(env, sum)
	env = binary.LittleEndian.AppendUint32(env, uint32(len(compressed)))
	env = binary.LittleEndian.AppendUint32(env, uint32(rawLen))
	env = append(env, compressed...)
	return env
}

// ReadEnvelope parses a frame envelope plus its compressed payload off the
// front of data, verifying the checksum before returning. It returns the
// frame type, the verified compressed payload, the expected decompressed
// length, and the number of bytes consumed from data.
func ReadEnvelope(data []byte) (ft FrameType, compressed []byte, rawLen int, consumed int, err error) {
	if len(data) < frameEnvSize {
		return 0, nil, 0, 0, fmt.Errorf("codec: envelope truncated: have %d bytes, need %d", len(data), frameEnvSize)
	}
	ft = FrameType(data[0])
	sum := binary.LittleEndian.Uint64(data[1:9])
	compressedLen := int(binary.LittleEndian.Uint32(data[9:13]))
	rawLen = int(binary.LittleEndian.Uint32(data[13:17]))

	if frameEnvSize+compressedLen > len(data) {
		return 0, nil, 0, 0, fmt.Errorf("codec: frame truncated: declared %d compressed bytes, have %d", compressedLen, len(data)-frameEnvSize)
	}
	compressed = data[frameEnvSize : frameEnvSize+compressedLen]
	if got := xxh3.Hash(compressed); got != sum {
		return 0, nil, 0, 0, fmt.Errorf("codec: checksum mismatch: got %x, want %x", got, sum)
	}
	return ft, compressed, rawLen, frameEnvSize + compressedLen, nil
}

// WriteFileHeader returns the fixed header every index file starts with:
// magic + format version.
func WriteFileHeader() []byte {
	h := make([]byte, 0, len(fileMagic)+1)
	h = append(h, fileMagic...)
	h = append(h, formatVersion)
	return h
}

// ReadFileHeader validates the magic and version at the front of data and
// returns the number of bytes consumed.
func ReadFileHeader(data []byte) (consumed int, err error) {
	if len(data) < len(fileMagic)+1 {
		return 0, fmt.Errorf("codec: file too short for header: %d bytes", len(data))
	}
	if string(data[:len(fileMagic)]) != string(fileMagic) {
		return 0, fmt.Errorf("codec: bad magic: %q", data[:len(fileMagic)])
	}
	if v := data[len(fileMagic)]; v != formatVersion {
		return 0, fmt.Errorf("codec: unsupported format version %d (want %d)", v, formatVersion)
	}
	return len(fileMagic) + 1, nil
}
