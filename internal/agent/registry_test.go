package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	id   string
	kind Kind
}

func (f *fakeAgent) ID() string { return f.id }
func (f *fakeAgent) Kind() Kind { return f.kind }

func (f *fakeAgent) Signal(context.Context, string, MarketSnapshot) (*Signal, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&fakeAgent{id: "momentum-1", kind: KindMomentum}))

	got, ok := r.Get("momentum-1")
	assert.True(t, ok)
	assert.Equal(t, "momentum-1", got.ID())
}

func TestRegistry_RejectsUnknownKind(t *testing.T) {
	r := NewRegistry()
	err := r.Register(&fakeAgent{id: "mystery-1", kind: Kind("arbitrage")})
	assert.ErrorContains(t, err, "unknown kind")
}

func TestRegistry_RejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeAgent{id: "momentum-1", kind: KindMomentum}))

	err := r.Register(&fakeAgent{id: "momentum-1", kind: KindLiquidity})
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistry_RejectsNil(t *testing.T) {
	assert.Error(t, NewRegistry().Register(nil))
}

func TestRegistry_ListStableOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeAgent{id: "zeta", kind: KindVolatility}))
	require.NoError(t, r.Register(&fakeAgent{id: "alpha", kind: KindMomentum}))
	require.NoError(t, r.Register(&fakeAgent{id: "mid", kind: KindLiquidity}))

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.IDs())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("mean_reversion")
	require.NoError(t, err)
	assert.Equal(t, KindMeanReversion, k)

	_, err = ParseKind("meanreversion")
	assert.Error(t, err)
}
