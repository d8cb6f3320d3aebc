package server

import (
	"github.com/nainya/codetree/pkg/codelist"
	"github.com/nainya/codetree/pkg/definition"
	"github.com/nainya/codetree/pkg/hierarchy"
)

// CodeRequest names a single code
type CodeRequest struct {
	Code hierarchy.Code `json:"code"`
}

// CodesMessage carries a list of codes, ascending in responses
type CodesMessage struct {
	Codes []hierarchy.Code `json:"codes"`
}

// SearchRequest searches by explicit codes or, when the provider supports
// it, by term
type SearchRequest struct {
	Codes []hierarchy.Code `json:"codes,omitempty"`
	Term  string           `json:"term,omitempty"`
}

// SearchResponse lists the codes a search covers
type SearchResponse struct {
	MatchingCodes []hierarchy.Code `json:"matching_codes"`
	AncestorCodes []hierarchy.Code `json:"ancestor_codes"`
	AllCodes      []hierarchy.Code `json:"all_codes"`
}

// WalkRequest asks for the tree below Code. Sort is "name" (default) or "code".
type WalkRequest struct {
	Code hierarchy.Code `json:"code"`
	Sort string         `json:"sort,omitempty"`
}

// WalkRow is one rendered tree line
type WalkRow struct {
	Code   hierarchy.Code `json:"code"`
	Term   string         `json:"term"`
	Depth  int            `json:"depth"`
	Pipes  []string       `json:"pipes"`
	Prefix string         `json:"prefix"`
}

// WalkResponse is the pre-order walk
type WalkResponse struct {
	Rows []WalkRow `json:"rows"`
}

// StatusUpdate is a manual include ("+") or exclude ("-")
type StatusUpdate struct {
	Code  hierarchy.Code `json:"code"`
	Value string         `json:"value"`
}

// ResolveRequest carries stored statuses by symbol and ordered updates
type ResolveRequest struct {
	Statuses map[hierarchy.Code]string `json:"statuses,omitempty"`
	Updates  []StatusUpdate            `json:"updates"`
}

// ResolveResponse holds every resolved status and the changed codes by symbol
type ResolveResponse struct {
	Statuses map[hierarchy.Code]string   `json:"statuses"`
	Changed  map[string][]hierarchy.Code `json:"changed"`
}

// DefinitionMessage wraps a definition
type DefinitionMessage struct {
	Definition definition.Definition `json:"definition"`
}

// VersionResponse is the display form of a codelist version
type VersionResponse struct {
	AncestorCodes []hierarchy.Code         `json:"ancestor_codes"`
	Tables        []codelist.Table         `json:"tables"`
	Definition    definition.Definition    `json:"definition"`
	Rows          []codelist.DefinitionRow `json:"rows"`
}
