package parser

import (
	"github.com/abdul-hamid-achik/hitshell/packages/core/diag"
)

// Program is the parse tree of one buffered input.
type Program struct {
	Source     string
	Statements []*Statement
}

// Statement is one function call and its parameters.
type Statement struct {
	Function *Function
	Params   []*Param
	Span     diag.Span
}

// Function names the called function. Provider is empty for built-ins.
type Function struct {
	Builtin  bool
	Provider string
	Name     string
	Span     diag.Span
}

// FullName returns the function name as typed.
func (f *Function) FullName() string {
	if f.Builtin {
		return f.Name
	}
	return f.Provider + "." + f.Name
}

type ParamKind int

const (
	ParamString ParamKind = iota
	ParamNumber
	ParamBare
	ParamKeyValue
)

var paramKindNames = map[ParamKind]string{
	ParamString:   "string",
	ParamNumber:   "number",
	ParamBare:     "bare",
	ParamKeyValue: "key=value",
}

func (k ParamKind) String() string {
	return paramKindNames[k]
}

// Param is one parameter. Value holds the decoded literal: a string for
// strings and bare words, a float64 for numbers. A key=value parameter holds
// its key in Key and its value parameter in Inner.
type Param struct {
	Kind  ParamKind
	Raw   string
	Value any
	Key   string
	Inner *Param
	Span  diag.Span
}
