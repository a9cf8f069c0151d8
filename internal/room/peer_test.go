package room

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWSPeerSendNeverBlocks(t *testing.T) {
	p := newWSPeer(nil)
	for i := 0; i < outboxSize; i++ {
		require.NoError(t, p.Send([]byte("frame")))
	}
	require.ErrorIs(t, p.Send([]byte("frame")), ErrPeerBacklog)

	p.close()
	p.close()
	require.ErrorIs(t, p.Send([]byte("frame")), ErrPeerClosed)
}
