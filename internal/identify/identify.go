// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identify classifies and normalizes bibliographic identifiers so
// the same work commits under one key regardless of how the caller spelled
// its identifier.
package identify

import (
	"regexp"
	"strings"
)

// Type classifies an input identifier.
type Type int

const (
	TypeUnknown Type = iota
	TypeDOI
	TypeArxiv
	TypeWorkID
)

func (t Type) String() string {
	switch t {
	case TypeDOI:
		return "doi"
	case TypeArxiv:
		return "arxiv"
	case TypeWorkID:
		return "work_id"
	default:
		return "unknown"
	}
}

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// workIDPattern matches provider work IDs: "W2741809807", optionally as a
// full provider URL.
var workIDPattern = regexp.MustCompile(`^(?:https://openalex\.org/)?(W\d{4,12})$`)

// Classify determines the identifier type and returns the normalized form:
// bare DOI (resolver prefix stripped), bare arXiv ID, or bare work ID.
func Classify(identifier string) (Type, string) {
	identifier = strings.TrimSpace(identifier)
	identifier = strings.TrimPrefix(identifier, "https://doi.org/")
	identifier = strings.TrimPrefix(identifier, "http://doi.org/")

	if doiPattern.MatchString(identifier) {
		return TypeDOI, identifier
	}

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}

	if m := workIDPattern.FindStringSubmatch(identifier); m != nil {
		return TypeWorkID, m[1]
	}

	return TypeUnknown, identifier
}
