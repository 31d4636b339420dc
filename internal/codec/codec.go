// Package codec adapts MessagePack to the value trees exchanged with the host.
//
// Decoded integers are widened to int64 (or uint64 for large unsigned values)
// and mappings decode as map[string]any, matching the kinds package wire
// understands. Every failure is reported as an error wrapping ErrCodec.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ErrCodec is wrapped by every encode or decode failure.
var ErrCodec = errors.New("codec error")

// Marshal encodes v. Map keys are written in sorted order so equal trees
// encode to equal bytes.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one value from data into v.
func Unmarshal(data []byte, v any) error {
	return NewDecoder(bytes.NewReader(data)).Decode(v)
}

// Encoder writes encoded values to an io.Writer.
type Encoder struct {
	enc *msgpack.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return &Encoder{enc: enc}
}

// Encode writes one value.
func (e *Encoder) Encode(v any) error {
	if err := e.enc.Encode(v); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrCodec, err)
	}
	return nil
}

func encode(w io.Writer, v any) error {
	return NewEncoder(w).Encode(v)
}

// Decoded containers are never preallocated beyond maxPrealloc entries, and
// values may nest at most maxDepth levels. A header claiming billions of
// entries therefore fails on the missing data instead of exhausting memory.
const (
	maxPrealloc = 1 << 10
	maxDepth    = 1 << 10
)

// Decoder reads successive values from a stream. It buffers the underlying
// reader, so a single Decoder must be used for the life of the stream.
type Decoder struct {
	dec *msgpack.Decoder
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	return &Decoder{dec: dec}
}

// Decode blocks until one complete value has been read and stores it in v.
// A truncated or corrupt stream yields an error wrapping ErrCodec; the
// decoder never panics on malformed input.
//
// v is normally *any or *map[string]any. Other targets are filled from the
// decoded tree.
func (d *Decoder) Decode(v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: decode: malformed input: %v", ErrCodec, r)
		}
	}()
	tree, err := d.value(0)
	if err != nil {
		return fmt.Errorf("%w: decode: %w", ErrCodec, err)
	}
	if err := assign(tree, v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrCodec, err)
	}
	return nil
}

func assign(tree any, v any) error {
	switch p := v.(type) {
	case *any:
		*p = tree
	case *map[string]any:
		if tree == nil {
			*p = nil
			return nil
		}
		m, ok := tree.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot decode %T into a mapping", tree)
		}
		*p = m
	default:
		data, err := msgpack.Marshal(tree)
		if err != nil {
			return err
		}
		return msgpack.Unmarshal(data, v)
	}
	return nil
}

func (d *Decoder) value(depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d", maxDepth)
	}
	c, err := d.dec.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		return d.mapping(depth)
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		return d.sequence(depth)
	default:
		return d.dec.DecodeInterfaceLoose()
	}
}

func (d *Decoder) mapping(depth int) (any, error) {
	n, err := d.dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	m := make(map[string]any, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		k, err := d.dec.DecodeString()
		if err != nil {
			return nil, err
		}
		v, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func (d *Decoder) sequence(depth int) (any, error) {
	n, err := d.dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	s := make([]any, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		v, err := d.value(depth + 1)
		if err != nil {
			return nil, err
		}
		s = append(s, v)
	}
	return s, nil
}
