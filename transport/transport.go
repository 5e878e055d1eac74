/*
Package transport は、ボンディングの下位に位置するトランスポートをまとめたパッケージです。

各トランスポートは、接続済みの全二重バイトストリームです。コネクションの確立（ダイヤル・
リッスン）はこのパッケージの責務ではなく、呼び出し側が確立済みのコネクションを渡します。
*/
package transport

import (
	"io"

	"github.com/kydos/bnd-socket/errors"
)

// Nameは、トランスポート名です。
type Name string

const (
	// TCPトランスポート
	NameTCP Name = "tcp"
	// WebSocketトランスポート
	NameWebSocket Name = "websocket"
	// テスト用のインメモリトランスポート
	NamePipe Name = "pipe"
)

var (
	// ErrAlreadyClosedは、トランスポートが閉じられている状態で読み書きをした場合に返されます。
	ErrAlreadyClosed = errors.ErrStreamClosed

	EOF = io.EOF
)

/*
Transport は、リンクの下位に位置する1本の全二重バイトストリームを抽象化したインターフェースです。

Read/Writeはメッセージ境界を持たない生のバイト列を扱います。メッセージ境界は上位の
wireパッケージの長さプレフィックスで表現されます。
*/
type Transport interface {
	io.Reader
	io.Writer

	// Close は、トランスポートのコネクションを切断します。
	Close() error

	// Nameは、トランスポート名を返却します。
	Name() Name

	// RxBytesCounterValue は、現在の受信バイトカウンターの値を返します。
	RxBytesCounterValue() uint64

	// TxBytesCounterValue は、現在の送信バイトカウンターの値を返します。
	TxBytesCounterValue() uint64
}
