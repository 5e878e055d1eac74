package bond

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/transport"
	"github.com/kydos/bnd-socket/wire"
)

// LinkIDは、リンクの識別子です。
type LinkID string

// Linkは、ボンディングされたストリームに参加している1本のトランスポートです。
//
// 1本のLinkの送信と受信はそれぞれ高々1つずつ同時に実行されます。送信同士は
// 内部のミューテックスで直列化され、メッセージのバイト列が混ざることはありません。
// 一度deadと判定されたLinkが復活することはありません。
type Link struct {
	id LinkID
	tr transport.Transport

	// recvFloorは、このリンク上で受信を許容する最小のシーケンス番号です。
	// 受信ループの開始前に設定され、以降変更されません。
	recvFloor uint64

	sendMu  sync.Mutex
	dead    atomic.Bool
	standby atomic.Bool
}

func newLink(tr transport.Transport) *Link {
	return &Link{
		id: LinkID(uuid.NewString()),
		tr: tr,
	}
}

// IDは、リンクの識別子を返却します。
func (l *Link) ID() LinkID {
	return l.id
}

// Aliveは、リンクが生存しているかどうかを返却します。
func (l *Link) Alive() bool {
	return !l.dead.Load()
}

// readyは、リンクがフレームの分配先として選択可能かどうかを返却します。
//
// ハンドシェイクの応答を送信し終えるまでのリンクはstandbyであり、生存していても
// 分配先には選択されません。
func (l *Link) ready() bool {
	return !l.dead.Load() && !l.standby.Load()
}

func (l *Link) markDead() {
	l.dead.Store(true)
}

// Sendは、メッセージをエンコードしトランスポートへ書き込みます。
//
// I/Oエラーが発生した場合はリンクをdeadとしてマークし、ErrLinkFailedを返却します。
func (l *Link) Send(m wire.Message) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	if l.dead.Load() {
		return errors.Errorf("link %s is dead: %w", l.id, errors.ErrLinkFailed)
	}
	if err := wire.WriteMessage(l.tr, m); err != nil {
		l.markDead()
		return errors.Errorf("send on link %s: %v: %w", l.id, err, errors.ErrLinkFailed)
	}
	return nil
}

// Receiveは、トランスポートからメッセージを1つ読み込みデコードします。
//
// 相手側の正常クローズはtransport.EOFをそのまま返却します。それ以外のエラー
// （デコード失敗を含む）はErrLinkFailedとして返却します。いずれの場合もリンクは
// deadとしてマークされます。
func (l *Link) Receive() (wire.Message, error) {
	m, err := wire.ReadMessage(l.tr)
	if err != nil {
		l.markDead()
		if err == transport.EOF {
			return nil, err
		}
		return nil, errors.Errorf("receive on link %s: %v: %w", l.id, err, errors.ErrLinkFailed)
	}
	return m, nil
}

// closeは、下位トランスポートを切断します。
func (l *Link) close() error {
	l.markDead()
	return l.tr.Close()
}

// RxBytesCounterValueは、このリンクで読み込んだ総バイト数を返却します。
func (l *Link) RxBytesCounterValue() uint64 {
	return l.tr.RxBytesCounterValue()
}

// TxBytesCounterValueは、このリンクで書き込んだ総バイト数を返却します。
func (l *Link) TxBytesCounterValue() uint64 {
	return l.tr.TxBytesCounterValue()
}
