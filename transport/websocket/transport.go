/*
Package websocket は、gorilla/websocketのコネクションをバイトストリームのトランスポートとして
利用するためのアダプターです。

WebSocketはメッセージ指向のため、書き込み1回を1つのバイナリメッセージとして送信し、
読み込みは受信したバイナリメッセージを連結した1本のバイトストリームとして扱います。
*/
package websocket

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	gwebsocket "github.com/gorilla/websocket"

	"github.com/kydos/bnd-socket/transport"
)

var _ transport.Transport = (*Transport)(nil)

// Transportは、WebSocketトランスポートです。
type Transport struct {
	wsconn *gwebsocket.Conn

	// 読みかけのメッセージのReaderです。メッセージを跨いだ読み込みで使用します。
	rd io.Reader

	readMu  sync.Mutex
	writeMu sync.Mutex

	rxBytesCounter uint64
	txBytesCounter uint64
}

// Newは、WebSocketトランスポートを返却します。
//
// wsconnは接続済みである必要があります。
func New(wsconn *gwebsocket.Conn) *Transport {
	return &Transport{
		wsconn: wsconn,
	}
}

// Readは、受信したバイナリメッセージのバイト列を読み込みます。
func (t *Transport) Read(p []byte) (int, error) {
	t.readMu.Lock()
	defer t.readMu.Unlock()

	for {
		if t.rd == nil {
			tp, rd, err := t.wsconn.NextReader()
			if err != nil {
				return 0, wrapError(err)
			}
			if tp != gwebsocket.BinaryMessage {
				// テキストメッセージはストリームの一部ではないため読み飛ばす
				continue
			}
			t.rd = rd
		}
		n, err := t.rd.Read(p)
		atomic.AddUint64(&t.rxBytesCounter, uint64(n))
		if err == io.EOF {
			// メッセージ終端。次のメッセージへ続く。
			t.rd = nil
			if n == 0 {
				continue
			}
			return n, nil
		}
		return n, err
	}
}

// Writeは、バイト列を1つのバイナリメッセージとして書き込みます。
func (t *Transport) Write(p []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := t.wsconn.WriteMessage(gwebsocket.BinaryMessage, p); err != nil {
		return 0, wrapError(err)
	}
	atomic.AddUint64(&t.txBytesCounter, uint64(len(p)))
	return len(p), nil
}

// Closeは、クローズメッセージを送信しWebSocketを切断します。
func (t *Transport) Close() error {
	t.writeMu.Lock()
	//nolint:errcheck // ベストエフォートでクローズメッセージを送る
	t.wsconn.WriteControl(
		gwebsocket.CloseMessage,
		gwebsocket.FormatCloseMessage(gwebsocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	t.writeMu.Unlock()
	return t.wsconn.Close()
}

// Nameは、トランスポート名を返却します。
func (t *Transport) Name() transport.Name {
	return transport.NameWebSocket
}

// RxBytesCounterValueは、読み込んだ総バイト数を返却します。
func (t *Transport) RxBytesCounterValue() uint64 {
	return atomic.LoadUint64(&t.rxBytesCounter)
}

// TxBytesCounterValueは、書き込んだ総バイト数を返却します。
func (t *Transport) TxBytesCounterValue() uint64 {
	return atomic.LoadUint64(&t.txBytesCounter)
}
