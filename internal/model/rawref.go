package model

import "strings"

// RawRef is a not-yet-resolved reference to another variable, as written on a
// right-hand side: its raw (pre-canonicalization) name and subscripts. The
// equation reader produces these; the analyzer resolves each one to the
// unique RefID it binds to (spec.md §4.3, §4.4 step 3).
type RawRef struct {
	Name       string
	Subscripts []string
}

// CanonicalName returns the raw reference's canonicalized variable name.
func (r RawRef) CanonicalName() string {
	return CanonicalName(r.Name)
}

// Encode renders a raw reference as the token stored in Variable.References /
// InitReferences before resolution: "name" or "name[s1,s2]", where name is the
// canonical name. DecodeRawRef reverses it, giving back the canonical name and
// the subscripts.
func (r RawRef) Encode() string {
	if len(r.Subscripts) == 0 {
		return r.CanonicalName()
	}
	return r.CanonicalName() + "[" + strings.Join(r.Subscripts, ",") + "]"
}

// DecodeRawRef parses a token previously produced by RawRef.Encode.
func DecodeRawRef(token string) RawRef {
	open := strings.IndexByte(token, '[')
	if open < 0 {
		return RawRef{Name: token}
	}
	name := token[:open]
	inner := strings.TrimSuffix(token[open+1:], "]")
	var subs []string
	if inner != "" {
		subs = strings.Split(inner, ",")
	}
	return RawRef{Name: name, Subscripts: subs}
}
