package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes values to bytes and back.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
}

// JSONCodec encodes with encoding/json. Numbers held in interface values
// decode as json.Number, so integers survive the round trip; a whole float
// comes back indistinguishable from an integer.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Name() string                 { return "json" }

func (JSONCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// MsgpackCodec encodes with msgpack, which keeps integers and floats distinct.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(v any) ([]byte, error)    { return msgpack.Marshal(v) }
func (MsgpackCodec) Decode(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (MsgpackCodec) Name() string                    { return "msgpack" }

// Compression is a compression algorithm applied after encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// Serializer pairs a codec with a compression algorithm.
type Serializer struct {
	Codec       Codec
	Compression Compression
}

// DefaultSerializer is msgpack without compression.
func DefaultSerializer() *Serializer {
	return &Serializer{Codec: MsgpackCodec{}, Compression: CompressionNone}
}

// Name identifies the serializer, e.g. "msgpack" or "json+zstd". It is
// stored with each checkpoint so a run can be resumed by any process.
func (s *Serializer) Name() string {
	if s.Compression == "" || s.Compression == CompressionNone {
		return s.Codec.Name()
	}
	return s.Codec.Name() + "+" + string(s.Compression)
}

// ParseSerializer is the inverse of Serializer.Name. The empty string selects
// the default serializer.
func ParseSerializer(name string) (*Serializer, error) {
	if strings.TrimSpace(name) == "" {
		return DefaultSerializer(), nil
	}
	codecName, compression, _ := strings.Cut(strings.ToLower(strings.TrimSpace(name)), "+")
	return NewSerializer(codecName, compression)
}

// NewSerializer builds a serializer from a codec name (json, msgpack) and a
// compression name (none, gzip, zstd; empty means none).
func NewSerializer(codec, compression string) (*Serializer, error) {
	s := &Serializer{Compression: CompressionNone}
	switch strings.ToLower(codec) {
	case "", "msgpack":
		s.Codec = MsgpackCodec{}
	case "json":
		s.Codec = JSONCodec{}
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnknownEncoding, codec)
	}
	switch Compression(strings.ToLower(compression)) {
	case "", CompressionNone:
	case CompressionGzip:
		s.Compression = CompressionGzip
	case CompressionZstd:
		s.Compression = CompressionZstd
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrUnknownEncoding, compression)
	}
	return s, nil
}

// Serialize encodes then compresses v.
func (s *Serializer) Serialize(v any) ([]byte, error) {
	data, err := s.Codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.Codec.Name(), err)
	}
	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress %s: %w", s.Compression, err)
	}
	return data, nil
}

// Deserialize decompresses then decodes data into v.
func (s *Serializer) Deserialize(data []byte, v any) error {
	data, err := s.decompress(data)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", s.Compression, err)
	}
	if err := s.Codec.Decode(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.Codec.Name(), err)
	}
	return nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.Compression {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.Compression {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return data, nil
	}
}
