package bond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kydos/bnd-socket/bond"
	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/transport"
	"github.com/kydos/bnd-socket/wire"
)

func TestLink_SendReceive(t *testing.T) {
	trA, trB := transport.Pipe()
	defer trA.Close()
	defer trB.Close()

	a := bond.NewLink(trA)
	b := bond.NewLink(trB)

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- a.Send(&wire.Frame{Seq: 7, Payload: []byte("hello")})
	}()

	m, err := b.Receive()
	require.NoError(t, err)
	require.NoError(t, <-sendErr)

	frame, ok := m.(*wire.Frame)
	require.True(t, ok)
	assert.Equal(t, uint64(7), frame.Seq)
	assert.Equal(t, []byte("hello"), frame.Payload)
	assert.True(t, a.Alive())
	assert.True(t, b.Alive())
}

func TestLink_Receive_相手の正常クローズはEOF(t *testing.T) {
	trA, trB := transport.Pipe()
	defer trB.Close()

	b := bond.NewLink(trB)
	require.NoError(t, trA.Close())

	_, err := b.Receive()
	assert.Equal(t, transport.EOF, err)
	assert.False(t, b.Alive())
}

func TestLink_Receive_切断はErrLinkFailed(t *testing.T) {
	trA, trB := transport.Pipe()
	defer trA.Close()

	b := bond.NewLink(trB)
	require.NoError(t, trB.Close())

	_, err := b.Receive()
	assert.ErrorIs(t, err, errors.ErrLinkFailed)
	assert.False(t, b.Alive())
}

func TestLink_Send_deadなリンクは書き込まずに失敗する(t *testing.T) {
	trA, trB := transport.Pipe()
	defer trA.Close()
	defer trB.Close()

	a := bond.NewLink(trA)
	a.MarkDead()

	err := a.Send(&wire.Frame{Seq: 0})
	assert.ErrorIs(t, err, errors.ErrLinkFailed)
	assert.Zero(t, trA.TxBytesCounterValue())
}
