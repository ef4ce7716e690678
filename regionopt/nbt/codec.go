package nbt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Decode parses a named root tag from data. Bytes following the root tag
// are ignored.
func Decode(data []byte) (NamedTag, error) {
	d := &decoder{buf: data}
	kind, err := d.kind()
	if err != nil {
		return NamedTag{}, err
	}
	if kind == KindEnd {
		return NamedTag{Value: End{}}, nil
	}
	name, err := d.string()
	if err != nil {
		return NamedTag{}, err
	}
	v, err := d.payload(kind, 0)
	if err != nil {
		return NamedTag{}, fmt.Errorf("root %q: %w", name, err)
	}
	return NamedTag{Name: name, Value: v}, nil
}

// DecodePayload parses a bare payload of the given kind, without a kind
// byte or name in front of it.
func DecodePayload(kind Kind, data []byte) (Value, error) {
	d := &decoder{buf: data}
	return d.payload(kind, 0)
}

// Encode serializes tag as a named root tag.
func Encode(tag NamedTag) ([]byte, error) {
	if tag.Value == nil || tag.Value.Kind() == KindEnd {
		return []byte{byte(KindEnd)}, nil
	}
	buf := make([]byte, 0, 4096)
	buf = append(buf, byte(tag.Value.Kind()))
	buf = appendString(buf, tag.Name)
	return appendPayload(buf, tag.Value)
}

// EncodePayload serializes v without a kind byte or name.
func EncodePayload(v Value) ([]byte, error) {
	return appendPayload(nil, v)
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if len(d.buf)-d.pos < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.pos
}

func (d *decoder) u8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) kind() (Kind, error) {
	b, err := d.u8()
	if err != nil {
		return 0, err
	}
	k := Kind(b)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: %d at offset %d", ErrInvalidKind, b, d.pos-1)
	}
	return k, nil
}

func (d *decoder) string() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// length reads a signed 32-bit element count and checks that at least
// width bytes per element are left in the buffer.
func (d *decoder) length(width int) (int, error) {
	v, err := d.u32()
	if err != nil {
		return 0, err
	}
	n := int(int32(v))
	if n < 0 {
		return 0, ErrNegativeLength
	}
	if width > 0 && n > d.remaining()/width {
		return 0, ErrTruncated
	}
	return n, nil
}

func (d *decoder) payload(kind Kind, depth int) (Value, error) {
	switch kind {
	case KindEnd:
		return End{}, nil
	case KindByte:
		v, err := d.u8()
		return Byte(int8(v)), err
	case KindShort:
		v, err := d.u16()
		return Short(int16(v)), err
	case KindInt:
		v, err := d.u32()
		return Int(int32(v)), err
	case KindLong:
		v, err := d.u64()
		return Long(int64(v)), err
	case KindFloat:
		v, err := d.u32()
		return Float(math.Float32frombits(v)), err
	case KindDouble:
		v, err := d.u64()
		return Double(math.Float64frombits(v)), err
	case KindString:
		s, err := d.string()
		return String(s), err
	case KindByteArray:
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		b, _ := d.take(n)
		arr := make(ByteArray, n)
		for i := range b {
			arr[i] = int8(b[i])
		}
		return arr, nil
	case KindIntArray:
		n, err := d.length(4)
		if err != nil {
			return nil, err
		}
		arr := make(IntArray, n)
		for i := range arr {
			v, _ := d.u32()
			arr[i] = int32(v)
		}
		return arr, nil
	case KindLongArray:
		n, err := d.length(8)
		if err != nil {
			return nil, err
		}
		arr := make(LongArray, n)
		for i := range arr {
			v, _ := d.u64()
			arr[i] = int64(v)
		}
		return arr, nil
	case KindList:
		return d.list(depth + 1)
	case KindCompound:
		return d.compound(depth + 1)
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidKind, byte(kind))
}

func (d *decoder) list(depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	b, err := d.u8()
	if err != nil {
		return nil, err
	}
	elem := Kind(b)
	n, err := d.length(0)
	if err != nil {
		return nil, err
	}
	l := &List{ElemKind: elem}
	if n == 0 {
		// The element kind of an empty list carries no meaning but is kept verbatim.
		return l, nil
	}
	if !elem.Valid() || elem == KindEnd {
		return nil, fmt.Errorf("%w: list of %s with %d items", ErrInvalidKind, elem, n)
	}
	l.Items = make([]Value, 0, min(n, d.remaining()))
	for i := 0; i < n; i++ {
		v, err := d.payload(elem, depth)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		l.Items = append(l.Items, v)
	}
	return l, nil
}

func (d *decoder) compound(depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	c := Compound{}
	for {
		kind, err := d.kind()
		if err != nil {
			return nil, err
		}
		if kind == KindEnd {
			return c, nil
		}
		name, err := d.string()
		if err != nil {
			return nil, err
		}
		v, err := d.payload(kind, depth)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		c = append(c, NamedTag{Name: name, Value: v})
	}
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func appendPayload(buf []byte, v Value) ([]byte, error) {
	switch t := v.(type) {
	case End:
	case Byte:
		buf = append(buf, byte(t))
	case Short:
		buf = binary.BigEndian.AppendUint16(buf, uint16(t))
	case Int:
		buf = binary.BigEndian.AppendUint32(buf, uint32(t))
	case Long:
		buf = binary.BigEndian.AppendUint64(buf, uint64(t))
	case Float:
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(t)))
	case Double:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(float64(t)))
	case String:
		buf = appendString(buf, string(t))
	case ByteArray:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(t)))
		for _, b := range t {
			buf = append(buf, byte(b))
		}
	case IntArray:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(t)))
		for _, i := range t {
			buf = binary.BigEndian.AppendUint32(buf, uint32(i))
		}
	case LongArray:
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(t)))
		for _, l := range t {
			buf = binary.BigEndian.AppendUint64(buf, uint64(l))
		}
	case *List:
		buf = append(buf, byte(t.ElemKind))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(t.Items)))
		for i, item := range t.Items {
			if item == nil || item.Kind() != t.ElemKind {
				return nil, fmt.Errorf("list item %d: %w", i, ErrKindMismatch)
			}
			var err error
			if buf, err = appendPayload(buf, item); err != nil {
				return nil, err
			}
		}
	case Compound:
		for _, tag := range t {
			if tag.Value == nil || tag.Value.Kind() == KindEnd {
				return nil, fmt.Errorf("%q: %w", tag.Name, ErrInvalidKind)
			}
			buf = append(buf, byte(tag.Value.Kind()))
			buf = appendString(buf, tag.Name)
			var err error
			if buf, err = appendPayload(buf, tag.Value); err != nil {
				return nil, err
			}
		}
		buf = append(buf, byte(KindEnd))
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidKind, v)
	}
	return buf, nil
}
