// ABOUTME: Coding system provider contract consumed by Build
// ABOUTME: Providers supply raw parent/child edges and names on demand

package hierarchy

import "context"

// Provider exposes a coding system's is-a graph one code at a time.
//
// Implementations must be safe for concurrent reads. A code the provider does
// not recognise is reported as *UnknownCodeError.
type Provider interface {
	// ParentsOf returns the immediate parents of code
	ParentsOf(ctx context.Context, code Code) ([]Code, error)

	// ChildrenOf returns the immediate children of code
	ChildrenOf(ctx context.Context, code Code) ([]Code, error)

	// NamesOf resolves human readable terms; codes without a term are omitted
	NamesOf(ctx context.Context, codes []Code) (map[Code]string, error)
}
