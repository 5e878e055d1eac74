/*
Package wire は、ボンディングで使用するワイヤプロトコルのメッセージ定義とコーデックを
まとめたパッケージです。

全メッセージは4バイトのビッグエンディアン長さプレフィックスに続けて、その長さ分の
メッセージ本文をワイヤ上に書き込みます。本文の先頭1バイトが種別タグです。
*/
package wire

import "fmt"

// Kindは、ワイヤメッセージの種別です。
type Kind uint8

const (
	// データフレーム
	KindFrame Kind = iota + 1
	// リンク追加要求
	KindActivateLink
	// リンク追加応答
	KindActivateAck
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "Frame"
	case KindActivateLink:
		return "ActivateLink"
	case KindActivateAck:
		return "ActivateAck"
	default:
		return fmt.Sprintf("UnknownKind(%d)", uint8(k))
	}
}

// Messageは、ワイヤメッセージを表すインターフェースです。
//
// 実装はFrame、ActivateLink、ActivateAckの3種に閉じています。
type Message interface {
	Kind() Kind
}

var (
	_ Message = (*Frame)(nil)
	_ Message = (*ActivateLink)(nil)
	_ Message = (*ActivateAck)(nil)
)

// Frameは、ボンディングされたデータの1単位です。
//
// Seqはストリーム全体（リンク単位ではない）で一意かつ書き込み順に単調増加する
// シーケンス番号です。
type Frame struct {
	Seq     uint64
	Payload []byte
}

// Kindは、メッセージ種別を返却します。
func (*Frame) Kind() Kind { return KindFrame }

// ActivateLinkは、稼働中のストリームへ新しいリンクを追加する際に、追加する側が
// 次に使用するシーケンス番号を相手へ通知するメッセージです。
type ActivateLink struct {
	// Seqは、送信側が次に採番するシーケンス番号です。
	// 新しいリンク上のフレームはこの値以降のシーケンス番号のみを運びます。
	Seq uint64
}

// Kindは、メッセージ種別を返却します。
func (*ActivateLink) Kind() Kind { return KindActivateLink }

// ActivateAckは、リンクの登録が完了し受信準備ができたことを通知する応答メッセージです。
type ActivateAck struct{}

// Kindは、メッセージ種別を返却します。
func (*ActivateAck) Kind() Kind { return KindActivateAck }
