// Package nbt implements the tagged binary tree format used to store chunk
// contents inside region files.
//
// Values form a closed set of types implementing Value. Strings and names are
// kept as the raw bytes found on disk, so a decoded tree encodes back to the
// exact same byte stream.
package nbt

import (
	"errors"
	"fmt"
)

// Kind is the one byte type identifier preceding every tag.
type Kind byte

const (
	KindEnd Kind = iota
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindByteArray
	KindString
	KindList
	KindCompound
	KindIntArray
	KindLongArray
)

var kindNames = map[Kind]string{
	KindEnd:       "End",
	KindByte:      "Byte",
	KindShort:     "Short",
	KindInt:       "Int",
	KindLong:      "Long",
	KindFloat:     "Float",
	KindDouble:    "Double",
	KindByteArray: "ByteArray",
	KindString:    "String",
	KindList:      "List",
	KindCompound:  "Compound",
	KindIntArray:  "IntArray",
	KindLongArray: "LongArray",
}

// Valid reports whether k is one of the known tag kinds.
func (k Kind) Valid() bool {
	return k <= KindLongArray
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

var (
	// ErrTruncated is returned when the input ends in the middle of a tag.
	ErrTruncated = errors.New("nbt: truncated input")

	// ErrInvalidKind is returned for a kind byte outside the known set.
	ErrInvalidKind = errors.New("nbt: invalid tag kind")

	// ErrNegativeLength is returned when an array, list or string declares a negative length.
	ErrNegativeLength = errors.New("nbt: negative length")

	// ErrTooDeep is returned when lists and compounds nest deeper than MaxDepth.
	ErrTooDeep = errors.New("nbt: nesting too deep")

	// ErrKindMismatch is returned when a list item does not have the list's element kind.
	ErrKindMismatch = errors.New("nbt: list element kind mismatch")
)

// MaxDepth is the deepest nesting of lists and compounds accepted by Decode.
const MaxDepth = 512

// Value is a tag payload. The set of implementations is closed.
type Value interface {
	Kind() Kind
	sealed()
}

type (
	End       struct{}
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []int8
	String    string
	IntArray  []int32
	LongArray []int64
)

// List is a homogeneous sequence of unnamed values. ElemKind is kept even
// when the list is empty so it survives a round trip.
type List struct {
	ElemKind Kind
	Items    []Value
}

// Compound is an ordered sequence of named tags. Names are not required to
// be unique; lookups return the first match.
type Compound []NamedTag

// NamedTag pairs a name with a value. The root of every tree is a NamedTag.
type NamedTag struct {
	Name  string
	Value Value
}

func (End) Kind() Kind       { return KindEnd }
func (Byte) Kind() Kind      { return KindByte }
func (Short) Kind() Kind     { return KindShort }
func (Int) Kind() Kind       { return KindInt }
func (Long) Kind() Kind      { return KindLong }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (ByteArray) Kind() Kind { return KindByteArray }
func (String) Kind() Kind    { return KindString }
func (*List) Kind() Kind     { return KindList }
func (Compound) Kind() Kind  { return KindCompound }
func (IntArray) Kind() Kind  { return KindIntArray }
func (LongArray) Kind() Kind { return KindLongArray }

func (End) sealed()       {}
func (Byte) sealed()      {}
func (Short) sealed()     {}
func (Int) sealed()       {}
func (Long) sealed()      {}
func (Float) sealed()     {}
func (Double) sealed()    {}
func (ByteArray) sealed() {}
func (String) sealed()    {}
func (*List) sealed()     {}
func (Compound) sealed()  {}
func (IntArray) sealed()  {}
func (LongArray) sealed() {}

// NewList returns an empty list whose items must be of kind elem.
func NewList(elem Kind) *List {
	return &List{ElemKind: elem}
}

// Add appends v, refusing values that do not match the element kind.
func (l *List) Add(v Value) error {
	if v == nil || v.Kind() != l.ElemKind {
		return fmt.Errorf("%w: want %s", ErrKindMismatch, l.ElemKind)
	}
	l.Items = append(l.Items, v)
	return nil
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.Items)
}

// Get returns the value of the first tag called name.
func (c Compound) Get(name string) (Value, bool) {
	for _, tag := range c {
		if tag.Name == name {
			return tag.Value, true
		}
	}
	return nil, false
}

// GetString looks up name and coerces it to a string.
func (c Compound) GetString(name string) (string, bool) {
	v, _ := c.Get(name)
	return AsString(v)
}

// GetInt looks up name and coerces it to an int32.
func (c Compound) GetInt(name string) (int32, bool) {
	v, _ := c.Get(name)
	return AsInt(v)
}

// GetLong looks up name and coerces it to an int64.
func (c Compound) GetLong(name string) (int64, bool) {
	v, _ := c.Get(name)
	return AsLong(v)
}

// GetCompound looks up name and coerces it to a compound.
func (c Compound) GetCompound(name string) (Compound, bool) {
	v, _ := c.Get(name)
	return AsCompound(v)
}

// GetList looks up name and coerces it to a list.
func (c Compound) GetList(name string) (*List, bool) {
	v, _ := c.Get(name)
	return AsList(v)
}

func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

func AsInt(v Value) (int32, bool) {
	i, ok := v.(Int)
	return int32(i), ok
}

func AsLong(v Value) (int64, bool) {
	l, ok := v.(Long)
	return int64(l), ok
}

func AsCompound(v Value) (Compound, bool) {
	c, ok := v.(Compound)
	return c, ok
}

func AsList(v Value) (*List, bool) {
	l, ok := v.(*List)
	return l, ok && l != nil
}
