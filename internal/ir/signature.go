// Package ir defines the intermediate representation consumed by the call
// graph engines: class types, method signatures, method bodies and a
// read-only program view with its type hierarchy.
package ir

import (
	"fmt"
	"strings"
)

// ConstructorName is the method name used for instance constructors.
const ConstructorName = "<init>"

// ClassType is a nominal class or interface identifier.
type ClassType string

// String returns the type name.
func (t ClassType) String() string { return string(t) }

// MethodSignature identifies a method by declaring type, name, parameter
// types and return type. Two signatures with equal fields are the same
// method, so signatures are used directly as map keys.
type MethodSignature struct {
	DeclaringType ClassType
	Name          string
	Params        string // comma separated parameter types
	Return        string
}

// NewSignature builds a MethodSignature from its parts.
func NewSignature(decl ClassType, name, ret string, params ...string) MethodSignature {
	return MethodSignature{
		DeclaringType: decl,
		Name:          name,
		Params:        strings.Join(params, ","),
		Return:        ret,
	}
}

// ParamTypes returns the parameter types in declaration order.
func (s MethodSignature) ParamTypes() []string {
	if s.Params == "" {
		return nil
	}
	return strings.Split(s.Params, ",")
}

// WithDeclaringType returns a copy of s bound to another declaring type.
func (s MethodSignature) WithDeclaringType(t ClassType) MethodSignature {
	s.DeclaringType = t
	return s
}

// IsConstructor reports whether s names an instance constructor.
func (s MethodSignature) IsConstructor() bool {
	return s.Name == ConstructorName
}

// SubSignature is the part of a signature that survives rebinding.
func (s MethodSignature) SubSignature() string {
	return fmt.Sprintf("%s %s(%s)", s.Return, s.Name, s.Params)
}

func (s MethodSignature) String() string {
	return fmt.Sprintf("<%s: %s>", s.DeclaringType, s.SubSignature())
}
