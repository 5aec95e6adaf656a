package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descTestValue Descriptor = "test_value"

type advertisingSource struct {
	*constSource
}

func (s advertisingSource) Advertised() map[Descriptor]*Output {
	return map[Descriptor]*Output{descTestValue: s.out}
}

type requestingSink struct {
	*doubler
}

func (d requestingSink) Requested() map[Descriptor]*Input {
	return map[Descriptor]*Input{descTestValue: d.in}
}

func TestAutoConnectByDescriptor(test *testing.T) {
	source := advertisingSource{newConstSource("source", 1)}
	sink := requestingSink{newDoubler("sink")}

	require.NoError(test, AutoConnect([]Component{source, sink}))
	assert.True(test, sink.in.Connected())
	assert.Same(test, source.out, sink.in.source)
}

func TestAutoConnectKeepsExplicitWiring(test *testing.T) {
	source := advertisingSource{newConstSource("source", 1)}
	other := newConstSource("other", 2)
	sink := requestingSink{newDoubler("sink")}
	require.NoError(test, sink.in.ConnectTo(other.out))

	require.NoError(test, AutoConnect([]Component{source, other, sink}))
	assert.Same(test, other.out, sink.in.source)
}

func TestAutoConnectRejectsDuplicateDescriptor(test *testing.T) {
	first := advertisingSource{newConstSource("first", 1)}
	second := advertisingSource{newConstSource("second", 2)}

	err := AutoConnect([]Component{first, second})
	require.Error(test, err)
	assert.Contains(test, err.Error(), "advertised by more than one component")
}

func TestAutoConnectLeavesUnmatchedInputAlone(test *testing.T) {
	sink := requestingSink{newDoubler("sink")}
	require.NoError(test, AutoConnect([]Component{sink}))
	assert.False(test, sink.in.Connected())
}
