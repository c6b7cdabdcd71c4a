package db

import "strconv"

//ValueKind tells which side of a Value is populated
type ValueKind int

const (
	//KindNone is the zero Value, it can not be stored
	KindNone ValueKind = iota
	//KindInt is stored in the intval column
	KindInt
	//KindText is stored in the strval column
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindText:
		return "text"
	}
	return "none"
}

//Value is a config setting, either an integer or a string, never both.
//Construct one with IntValue or TextValue.
type Value struct {
	kind ValueKind
	i    int64
	s    string
}

//IntValue builds an integer config value
func IntValue(i int64) Value {
	return Value{kind: KindInt, i: i}
}

//TextValue builds a string config value
func TextValue(s string) Value {
	return Value{kind: KindText, s: s}
}

//BoolValue builds an integer config value of 1 or 0, which is how
//flags such as is-configured are kept
func BoolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}

//Kind returns which variant is held
func (v Value) Kind() ValueKind {
	return v.kind
}

//Int returns the integer and true when the value is an integer
func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

//Text returns the string and true when the value is a string
func (v Value) Text() (string, bool) {
	return v.s, v.kind == KindText
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindText:
		return v.s
	}
	return ""
}

//columns returns the (intval, strval) pair to store, the unused side is NULL
func (v Value) columns() (interface{}, interface{}) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindText:
		return nil, v.s
	}
	return nil, nil
}

//ConfigEntry is a single named row of the config table
type ConfigEntry struct {
	Name  string
	Value Value
}
