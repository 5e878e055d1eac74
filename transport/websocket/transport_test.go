package websocket_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gwebsocket "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kydos/bnd-socket/transport"
	"github.com/kydos/bnd-socket/transport/websocket"
)

// newEchoServerは、受信したバイト列をそのまま返すWebSocketサーバーを起動します。
func newEchoServer(t *testing.T) string {
	t.Helper()
	upgrader := gwebsocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsconn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		tr := websocket.New(wsconn)
		defer tr.Close()
		buf := make([]byte, 1024)
		for {
			n, err := tr.Read(buf)
			if err != nil {
				return
			}
			if _, err := tr.Write(buf[:n]); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestTransport_ReadWrite(t *testing.T) {
	url := newEchoServer(t)

	wsconn, _, err := gwebsocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	tr := websocket.New(wsconn)
	defer tr.Close()

	assert.Equal(t, transport.NameWebSocket, tr.Name())

	_, err = tr.Write([]byte("hello websocket"))
	require.NoError(t, err)

	// メッセージ境界を跨いだ読み込み
	buf := make([]byte, 5)
	var got []byte
	for len(got) < len("hello websocket") {
		n, err := tr.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "hello websocket", string(got))

	assert.Equal(t, uint64(len("hello websocket")), tr.TxBytesCounterValue())
	assert.Equal(t, uint64(len("hello websocket")), tr.RxBytesCounterValue())
}

func TestTransport_Close後のReadはエラー(t *testing.T) {
	url := newEchoServer(t)

	wsconn, _, err := gwebsocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	tr := websocket.New(wsconn)
	require.NoError(t, tr.Close())

	buf := make([]byte, 16)
	_, err = tr.Read(buf)
	assert.Error(t, err)
}
