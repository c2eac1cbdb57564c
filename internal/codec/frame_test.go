package codec

import "testing"

func TestPostingsFrame_Roundtrip(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()

	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	pf := &PostingsFrame{
		Records: []PostingRecord{
			{TermRef: 0, ConversationRef: 0, Field: 0, Positions: []uint64{1, 4, 9}},
			{TermRef: 1, ConversationRef: 0, Field: 0, Positions: []uint64{2}},
			{TermRef: 0, ConversationRef: 1, Field: 1, Positions: []uint64{0}},
		},
	}

	encoded := enc.EncodePostingsFrame(pf)
	if FrameType(encoded[0]) != FramePostings {
		t.Errorf("frame type: got %x, want %x", encoded[0], FramePostings)
	}

	ft, compressed, rawLen, n, err := ReadEnvelope(encoded)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if ft != FramePostings {
		t.Errorf("ReadEnvelope frame type: got %x, want %x", ft, FramePostings)
	}
	if n != len(encoded) {
		t.Errorf("consumed %d, want %d", n, len(encoded))
	}
	if rawLen <= 0 {
		t.Errorf("rawLen = %d, want > 0", rawLen)
	}

	decoded, err := dec.DecodePostingsFrame(compressed)
	if err != nil {
		t.Fatalf("DecodePostingsFrame: %v", err)
	}
	if len(decoded.Records) != len(pf.Records) {
		t.Fatalf("Records: got %d, want %d", len(decoded.Records), len(pf.Records))
	}
	for i, r := range decoded.Records {
		want := pf.Records[i]
		if r.TermRef != want.TermRef || r.ConversationRef != want.ConversationRef || r.Field != want.Field {
			t.Errorf("record %d: got %+v, want %+v", i, r, want)
		}
		if len(r.Positions) != len(want.Positions) {
			t.Fatalf("record %d positions: got %v, want %v", i, r.Positions, want.Positions)
		}
		for j := range r.Positions {
			if r.Positions[j] != want.Positions[j] {
				t.Errorf("record %d position %d: got %d, want %d", i, j, r.Positions[j], want.Positions[j])
			}
		}
	}
}

func TestDictFrame_Roundtrip(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	df := &DictFrame{Namespace: NSTerms, Entries: []string{"auth", "middleware", "bug"}}
	encoded := enc.EncodeDictFrame(df)

	_, compressed, _, _, err := ReadEnvelope(encoded)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	decoded, err := dec.DecodeDictFrame(compressed)
	if err != nil {
		t.Fatalf("DecodeDictFrame: %v", err)
	}
	if decoded.Namespace != NSTerms {
		t.Errorf("Namespace: got %d, want %d", decoded.Namespace, NSTerms)
	}
	if len(decoded.Entries) != 3 || decoded.Entries[1] != "middleware" {
		t.Errorf("Entries: got %v", decoded.Entries)
	}
}

func TestMetaFrame_Roundtrip(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	dec, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer dec.Close()

	mf := &MetaFrame{
		FormatVersion:     1,
		ConversationCount: 42,
		TermCount:         9001,
		PostingCount:      123456,
		BuiltAtUnix:       1772000000,
	}
	encoded := enc.EncodeMetaFrame(mf)

	_, compressed, _, _, err := ReadEnvelope(encoded)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	decoded, err := dec.DecodeMetaFrame(compressed)
	if err != nil {
		t.Fatalf("DecodeMetaFrame: %v", err)
	}
	if *decoded != *mf {
		t.Errorf("got %+v, want %+v", decoded, mf)
	}
}

func TestReadEnvelope_ChecksumMismatch(t *testing.T) {
	enc, err := NewEncoder()
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()

	encoded := enc.EncodeMetaFrame(&MetaFrame{FormatVersion: 1})
	corrupted := append([]byte(nil), encoded...)
	corrupted[len(corrupted)-1] ^= 0xFF

	if _, _, _, _, err := ReadEnvelope(corrupted); err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
}

func TestReadEnvelope_Truncated(t *testing.T) {
	if _, _, _, _, err := ReadEnvelope([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected truncation error, got nil")
	}
}
