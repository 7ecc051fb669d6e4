// Package ledgerfile encodes and decodes the full ledger state to the flat
// text file the store persists to.
package ledgerfile

import (
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/teller-ledger/teller/internal/model"
)

// Format names accepted in configuration.
const (
	FormatTagged = "tagged"
	FormatLegacy = "legacy"
)

// ErrUnencodable is returned when a codec cannot write the given state
// without it reading back differently.
var ErrUnencodable = errors.New("state cannot be encoded in this format")

// Codec converts between the in-memory users and one file format.
type Codec interface {
	Decode(r io.Reader) ([]*model.User, error)
	Encode(w io.Writer, users []*model.User) error
	Format() string
}

// Registry holds codecs by format name.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry creates an empty codec registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register adds a codec. Panics on duplicate format.
func (r *Registry) Register(c Codec) {
	key := strings.ToLower(c.Format())
	if _, ok := r.codecs[key]; ok {
		panic("duplicate ledger format: " + key)
	}
	r.codecs[key] = c
}

// Get returns the codec for format, or nil.
func (r *Registry) Get(format string) Codec {
	return r.codecs[strings.ToLower(format)]
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in codecs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TaggedCodec{})
	r.Register(LegacyCodec{})
	return r
}
