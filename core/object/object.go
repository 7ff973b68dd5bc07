// Package object is the in-memory PDF object model: the graph of direct and
// indirect objects that the comparator walks.
//
// Object is a closed sum type. The concrete types are Null, Boolean, Integer,
// Real, String, Name, *Array, *Dict, *Stream and Ref; switch on them
// exhaustively. Indirect objects live in a Document arena keyed by object
// number and are reached through Ref values.
package object

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies an Object. Integer and Real share KindNumber.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindName
	KindArray
	KindDictionary
	KindStream
	KindReference
)

var kindNames = [...]string{
	KindNull:       "Null",
	KindBoolean:    "Boolean",
	KindNumber:     "Number",
	KindString:     "String",
	KindName:       "Name",
	KindArray:      "Array",
	KindDictionary: "Dictionary",
	KindStream:     "Stream",
	KindReference:  "Reference",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Object is implemented only by the types of this package.
type Object interface {
	Kind() Kind
	isObject()
}

// Null is the PDF null object.
type Null struct{}

// Boolean is a PDF boolean.
type Boolean bool

// Integer is a PDF integer number.
type Integer int64

// Real is a PDF real number.
type Real float64

// String is a PDF string. Value holds the decoded bytes; Hex records whether
// the source used the <...> form and only matters when writing.
type String struct {
	Value []byte
	Hex   bool
}

// Name is a PDF name without the leading slash.
type Name string

// Ref is an indirect reference "Num Gen R".
type Ref struct {
	Num int
	Gen int
}

func (Null) Kind() Kind    { return KindNull }
func (Boolean) Kind() Kind { return KindBoolean }
func (Integer) Kind() Kind { return KindNumber }
func (Real) Kind() Kind    { return KindNumber }
func (String) Kind() Kind  { return KindString }
func (Name) Kind() Kind    { return KindName }
func (Ref) Kind() Kind     { return KindReference }

func (Null) isObject()    {}
func (Boolean) isObject() {}
func (Integer) isObject() {}
func (Real) isObject()    {}
func (String) isObject()  {}
func (Name) isObject()    {}
func (Ref) isObject()     {}

// Str builds a literal string object.
func Str(s string) String { return String{Value: []byte(s)} }

// HexStr builds a hex string object.
func HexStr(b []byte) String { return String{Value: b, Hex: true} }

func (Null) String() string { return "null" }

func (b Boolean) String() string { return strconv.FormatBool(bool(b)) }

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

func (r Real) String() string { return FormatReal(float64(r)) }

func (s String) String() string {
	if s.Hex {
		return fmt.Sprintf("<%X>", s.Value)
	}
	return "(" + string(s.Value) + ")"
}

func (n Name) String() string { return "/" + string(n) }

func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// FormatReal renders a real number without exponent and without trailing
// zeros, the way PDF producers write them.
func FormatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// KindOf returns the kind of o, treating a nil interface as KindNull.
func KindOf(o Object) Kind {
	if o == nil {
		return KindNull
	}
	return o.Kind()
}

// Number returns the numeric value of an Integer or Real.
func Number(o Object) (float64, bool) {
	switch v := o.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// IsRef reports whether o is an indirect reference.
func IsRef(o Object) bool {
	_, ok := o.(Ref)
	return ok
}
