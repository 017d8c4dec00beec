package engine

import (
	"strings"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ParseModelRef splits a "provider/model" config string (e.g.
// "anthropic/claude-sonnet-4") into its ModelRef parts at the first
// slash. A string with no slash is treated as a bare model id with an
// empty provider. Nothing is validated: only "" yields the zero
// ModelRef, and a ref like "provider/" yields an empty ModelID.
func ParseModelRef(s string) types.ModelRef {
	provider, model, ok := strings.Cut(s, "/")
	if !ok {
		return types.ModelRef{ModelID: s}
	}
	return types.ModelRef{ProviderID: provider, ModelID: model}
}
