package codec

import "fmt"

// File is the fully decoded content of an index file: both dictionaries,
// every posting, and the meta frame.
type File struct {
	Terms         *DictFrame
	Conversations *DictFrame
	Postings      *PostingsFrame
	Meta          *MetaFrame
}

// WriteFile serializes f to a single byte slice: a file header followed by
// the term dictionary, conversation dictionary, postings, and meta frames
// in that fixed order.
func WriteFile(f *File) ([]byte, error) {
	enc, err := NewEncoder()
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	out := WriteFileHeader()
	out = append(out, enc.EncodeDictFrame(f.Terms)...)
	out = append(out, enc.EncodeDictFrame(f.Conversations)...)
	out = append(out, enc.EncodePostingsFrame(f.Postings)...)
	out = append(out, enc.EncodeMetaFrame(f.Meta)...)
	return out, nil
}

// ReadFile parses data written by WriteFile. Any checksum mismatch,
// truncation, or bad magic anywhere in the file is returned as an error;
// callers treat that as "index corrupt, rebuild from the catalog" rather
// than attempting partial recovery.
func ReadFile(data []byte) (*File, error) {
	consumed, err := ReadFileHeader(data)
	if err != nil {
		return nil, err
	}
	data = data[consumed:]

	dec, err := NewDecoder()
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	f := &File{}
	for len(data) > 0 {
		ft, compressed, _, n, err := ReadEnvelope(data)
		if err != nil {
			return nil, fmt.Errorf("codec: reading frame: %w", err)
		}
		switch ft {
		case FrameDict:
			df, err := dec.DecodeDictFrame(compressed)
			if err != nil {
				return nil, err
			}
			switch df.Namespace {
			case NSTerms:
				f.Terms = df
			case NSConversations:
				f.Conversations = df
			default:
				return nil, fmt.Errorf("codec: unknown dict namespace %d", df.Namespace)
			}
		case FramePostings:
			pf, err := dec.DecodePostingsFrame(compressed)
			if err != nil {
				return nil, err
			}
			f.Postings = pf
		case FrameMeta:
			mf, err := dec.DecodeMetaFrame(compressed)
			if err != nil {
				return nil, err
			}
			f.Meta = mf
		default:
			return nil, fmt.Errorf("codec: unknown frame type %d", ft)
		}
		data = data[n:]
	}

	if f.Terms == nil || f.Conversations == nil || f.Postings == nil || f.Meta == nil {
		return nil, fmt.Errorf("codec: index file missing required frames")
	}
	return f, nil
}
