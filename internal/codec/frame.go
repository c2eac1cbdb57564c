package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Dictionary namespaces: the Index Store interns terms and conversation IDs
// separately so postings can reference either by a small uvarint instead of
// repeating the string.
const (
	NSTerms         byte = 0x00
	NSConversations byte = 0x01
)

const payloadVersion = 0x01

var (
	postingsMagic = []byte("SIFP")
	dictMagic     = []byte("SIFD")
	metaMagic     = []byte("SIFM")
)

// PostingRecord is one on-disk posting: a term and conversation, both
// referenced by dictionary index, the field it occurred in, and the token
// positions within that field.
type PostingRecord struct {
	TermRef         uint64
	ConversationRef uint64
	Field           byte
	Positions       []uint64
}

// PostingsFrame is the decoded content of a postings frame.
type PostingsFrame struct {
	Records []PostingRecord
}

// DictFrame is the decoded content of a dictionary frame: every interned
// string for one namespace, in assignment order (so index == ref).
type DictFrame struct {
	Namespace byte
	Entries   []string
}

// MetaFrame is the decoded content of the meta frame: counts, a build
// timestamp, and a generation ID used for display; loading an index does
// not compare it against the catalog. GenerationID is a
// ULID minted fresh on every Save; a crash-recovery path that falls back to
// an older snapshot can report which generation it recovered to.
type MetaFrame struct {
	FormatVersion     byte
	ConversationCount uint32
	TermCount         uint32
	PostingCount      uint32
	BuiltAtUnix       uint32
	GenerationID      [16]byte
}

// Encoder compresses frame payloads with zstd before they're enveloped.
type Encoder struct {
	zw *zstd.Encoder
}

func NewEncoder() (*Encoder, error) {
	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("codec: create zstd encoder: %w", err)
	}
	return &Encoder{zw: zw}, nil
}

func (e *Encoder) Close() {
	_ = e.zw.Close()
}

func (e *Encoder) EncodePostingsFrame(pf *PostingsFrame) []byte {
	payload := encodePostingsPayload(pf)
	return e.wrapFrame(FramePostings, payload)
}

func (e *Encoder) EncodeDictFrame(df *DictFrame) []byte {
	payload := encodeDictPayload(df)
	return e.wrapFrame(FrameDict, payload)
}

func (e *Encoder) EncodeMetaFrame(mf *MetaFrame) []byte {
	payload := encodeMetaPayload(mf)
	return e.wrapFrame(FrameMeta, payload)
}

func (e *Encoder) wrapFrame(ft FrameType, payload []byte) []byte {
	compressed := e.zw.EncodeAll(payload, nil)
	return WriteEnvelope(ft, compressed, len(payload))
}

func encodePostingsPayload(pf *PostingsFrame) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, postingsMagic...)
	buf = append(buf, payloadVersion)
	buf = appendUvarint(buf, uint64(len(pf.Records)))
	for _, r := range pf.Records {
		buf = appendUvarint(buf, r.TermRef)
		buf = appendUvarint(buf, r.ConversationRef)
		buf = append(buf, r.Field)
		buf = appendUvarint(buf, uint64(len(r.Positions)))
		for _, p := range r.Positions {
			buf = appendUvarint(buf, p)
		}
	}
	return buf
}

func encodeDictPayload(df *DictFrame) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, dictMagic...)
	buf = append(buf, payloadVersion)
	buf = append(buf, df.Namespace)
	buf = appendUvarint(buf, uint64(len(df.Entries)))
	for _, e := range df.Entries {
		b := []byte(e)
		buf = appendUvarint(buf, uint64(len(b)))
		buf = append(buf, b...)
	}
	return buf
}

func encodeMetaPayload(mf *MetaFrame) []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, metaMagic...)
	buf = append(buf, payloadVersion)
	buf = append(buf, mf.FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, mf.ConversationCount)
	buf = binary.LittleEndian.AppendUint32(buf, mf.TermCount)
	buf = binary.LittleEndian.AppendUint32(buf, mf.PostingCount)
	buf = binary.LittleEndian.AppendUint32(buf, mf.BuiltAtUnix)
	buf = append(buf, mf.GenerationID[:]...)
	return buf
}

// Decoder decompresses frame payloads. Decoder does not verify the frame
// checksum itself — that happens in ReadEnvelope before the compressed
// bytes ever reach the decoder.
type Decoder struct {
	zr *zstd.Decoder
}

func NewDecoder() (*Decoder, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: create zstd decoder: %w", err)
	}
	return &Decoder{zr: zr}, nil
}

func (d *Decoder) Close() {
	d.zr.Close()
}

func (d *Decoder) DecodePostingsFrame(compressed []byte) (*PostingsFrame, error) {
	payload, err := d.zr.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: decode postings: zstd: %w", err)
	}
	return parsePostingsPayload(payload)
}

func (d *Decoder) DecodeDictFrame(compressed []byte) (*DictFrame, error) {
	payload, err := d.zr.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: decode dict: zstd: %w", err)
	}
	return parseDictPayload(payload)
}

func (d *Decoder) DecodeMetaFrame(compressed []byte) (*MetaFrame, error) {
	payload, err := d.zr.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: decode meta: zstd: %w", err)
	}
	return parseMetaPayload(payload)
}

func parsePostingsPayload(data []byte) (*PostingsFrame, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("codec: postings payload too short: %d bytes", len(data))
	}
	if string(data[0:4]) != string(postingsMagic) {
		return nil, fmt.Errorf("codec: postings payload bad magic: %x", data[0:4])
	}
	pos := 5
	n, used := readUvarint(data[pos:])
	pos += used
	pf := &PostingsFrame{Records: make([]PostingRecord, 0, n)}

	for i := uint64(0); i < n; i++ {
		var r PostingRecord
		var m int
		r.TermRef, m = readUvarint(data[pos:])
		pos += m
		r.ConversationRef, m = readUvarint(data[pos:])
		pos += m
		if pos >= len(data) {
			return nil, fmt.Errorf("codec: postings payload truncated at record %d field", i)
		}
		r.Field = data[pos]
		pos++
		numPos, m2 := readUvarint(data[pos:])
		pos += m2
		r.Positions = make([]uint64, 0, numPos)
		for j := uint64(0); j < numPos; j++ {
			p, m3 := readUvarint(data[pos:])
			pos += m3
			r.Positions = append(r.Positions, p)
		}
		pf.Records = append(pf.Records, r)
	}
	return pf, nil
}

func parseDictPayload(data []byte) (*DictFrame, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("codec: dict payload too short: %d bytes", len(data))
	}
	if string(data[0:4]) != string(dictMagic) {
		return nil, fmt.Errorf("codec: dict payload bad magic: %x", data[0:4])
	}
	df := &DictFrame{Namespace: data[5]}
	pos := 6
	n, used := readUvarint(data[pos:])
	pos += used
	df.Entries = make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		strLen, m := readUvarint(data[pos:])
		pos += m
		if pos+int(strLen) > len(data) {
			return nil, fmt.Errorf("codec: dict payload truncated at entry %d", i)
		}
		df.Entries = append(df.Entries, string(data[pos:pos+int(strLen)]))
		pos += int(strLen)
	}
	return df, nil
}

func parseMetaPayload(data []byte) (*MetaFrame, error) {
	const want = 5 + 1 + 4*4 + 16
	if len(data) < want {
		return nil, fmt.Errorf("codec: meta payload too short: %d bytes, want %d", len(data), want)
	}
	if string(data[0:4]) != string(metaMagic) {
		return nil, fmt.Errorf("codec: meta payload bad magic: %x", data[0:4])
	}
	mf := &MetaFrame{}
	pos := 5
	mf.FormatVersion = data[pos]
	pos++
	mf.ConversationCount = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	mf.TermCount = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	mf.PostingCount = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	mf.BuiltAtUnix = binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4
	copy(mf.GenerationID[:], data[pos:pos+16])
	return mf, nil
}

// appendUvarint appends an unsigned LEB128 varint to buf.
func appendUvarint(buf []byte, x uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	return append(buf, tmp[:n]...)
}

// readUvarint reads an unsigned LEB128 varint from data, returning the
// value and the number of bytes consumed.
func readUvarint(data []byte) (uint64, int) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, 1
	}
	return v, n
}
