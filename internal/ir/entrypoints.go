package ir

import "strings"

// Scope decides which types belong to the code under analysis. Calls into
// types outside the scope are library calls and are not expanded.
type Scope interface {
	Contains(t ClassType) bool
}

// PrefixScope accepts types named by one of its prefixes or nested below
// one at a path or name boundary, so "example.com/app" covers
// "example.com/app/util.T" and "example.com/app.T" but not
// "example.com/apps.T". A prefix ending in '/' or '.' is matched as is.
// An empty PrefixScope accepts everything.
type PrefixScope []string

func (s PrefixScope) Contains(t ClassType) bool {
	if len(s) == 0 {
		return true
	}
	for _, prefix := range s {
		if WithinPrefix(string(t), prefix) {
			return true
		}
	}
	return false
}

// WithinPrefix reports whether name equals prefix or continues it past a
// '/' or '.' separator.
func WithinPrefix(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	if len(name) == len(prefix) || prefix == "" {
		return true
	}
	switch prefix[len(prefix)-1] {
	case '/', '.':
		return true
	}
	switch name[len(prefix)] {
	case '/', '.':
		return true
	}
	return false
}

// EntryPointProvider yields the methods a traversal starts from.
type EntryPointProvider interface {
	EntryPoints() []MethodSignature
}

// EntryPoints is a fixed, ordered list of entry methods.
type EntryPoints []MethodSignature

func (e EntryPoints) EntryPoints() []MethodSignature { return e }

// InScope keeps the entry points whose declaring type lies inside scope.
func InScope(entries []MethodSignature, scope Scope) []MethodSignature {
	out := make([]MethodSignature, 0, len(entries))
	for _, e := range entries {
		if scope.Contains(e.DeclaringType) {
			out = append(out, e)
		}
	}
	return out
}
