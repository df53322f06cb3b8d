package testutil

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dagclosure/internal/model"
)

// Arc is one direct arc of a test graph.
type Arc struct {
	From string
	To   string
}

// String renders the arc as "from>to".
func (a Arc) String() string { return a.From + ">" + a.To }

// ParseArcs parses "a>b" specs. It panics on a malformed spec, since specs
// are literals in test code.
func ParseArcs(specs ...string) []Arc {
	out := make([]Arc, 0, len(specs))
	for _, s := range specs {
		from, to, ok := strings.Cut(s, ">")
		if !ok || from == "" || to == "" {
			panic(fmt.Sprintf("testutil: malformed arc %q", s))
		}
		out = append(out, Arc{From: from, To: to})
	}
	return out
}

// Connector is the part of the engine that builds graphs.
type Connector interface {
	Connect(ctx context.Context, u, v any) (model.Link, error)
}

// MustConnect connects every arc in order and fails the test on error.
func MustConnect(t testing.TB, c Connector, specs ...string) {
	t.Helper()
	for _, a := range ParseArcs(specs...) {
		_, err := c.Connect(context.Background(), a.From, a.To)
		require.NoError(t, err, "connect %s", a)
	}
}

// Chain returns the arcs n0>n1, n1>n2, ... for the given nodes.
func Chain(nodes ...string) []string {
	var out []string
	for i := 1; i < len(nodes); i++ {
		out = append(out, nodes[i-1]+">"+nodes[i])
	}
	return out
}

// NodeNames returns "n00", "n01", ... for n nodes.
func NodeNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("n%02d", i)
	}
	return out
}

// RandomDAG returns a shuffled set of arcs over n nodes in which each
// forward pair (i < j of a random topological order) is an arc with
// probability p. The same seed yields the same graph.
func RandomDAG(seed uint64, n int, p float64) []Arc {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	names := NodeNames(n)
	r.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	var arcs []Arc
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if r.Float64() < p {
				arcs = append(arcs, Arc{From: names[i], To: names[j]})
			}
		}
	}
	r.Shuffle(len(arcs), func(i, j int) { arcs[i], arcs[j] = arcs[j], arcs[i] })
	return arcs
}

// Specs renders arcs back into "a>b" form.
func Specs(arcs []Arc) []string {
	out := make([]string, len(arcs))
	for i, a := range arcs {
		out[i] = a.String()
	}
	return out
}
