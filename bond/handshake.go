package bond

import (
	"time"

	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/internal/ch"
	"github.com/kydos/bnd-socket/transport"
	"github.com/kydos/bnd-socket/wire"
)

// AddLinkは、稼働中のストリームへ新しいトランスポートをリンクとして追加します（追加する側）。
//
// 新しいトランスポート上でActivateLinkを送信し、HandshakeTimeout以内のActivateAck受信を
// 待ちます。タイムアウトした場合やActivateAck以外のメッセージを受信した場合は
// ErrHandshakeFailedを返却し、トランスポートを破棄します。その場合も既存のリンク集合に
// 影響はありません。
func (s *Stream) AddLink(tr transport.Transport) error {
	if err := s.terminal(); err != nil {
		return err
	}

	// 相手にはこのリンク上のフレームが使うシーケンス番号の下限を通知する
	if err := wire.WriteMessage(tr, &wire.ActivateLink{Seq: s.dist.currentSeq()}); err != nil {
		tr.Close()
		return errors.Errorf("send activate link: %v: %w", err, errors.ErrHandshakeFailed)
	}

	m, err := s.readMessageTimeout(tr)
	if err != nil {
		tr.Close()
		return err
	}
	if _, ok := m.(*wire.ActivateAck); !ok {
		tr.Close()
		return errors.Errorf("unexpected %s while waiting for activate ack: %w", m.Kind(), errors.ErrHandshakeFailed)
	}

	l := s.attachLink(tr)
	s.logger.Infof(s.ctx, "Link %s activated by handshake", l.ID())
	return nil
}

// AcceptLinkは、相手側が追加した新しいトランスポートをリンクとして受け入れます（受ける側）。
//
// HandshakeTimeout以内のActivateLink受信を待ち、リンクを登録してからActivateAckを
// 返送します。ActivateLink以外のメッセージを受信した場合やタイムアウトした場合は
// ErrHandshakeFailedを返却し、トランスポートを破棄します。ActivateAckの送信に失敗した
// 場合もリンクは参加せず、ErrLinkFailedを返却します。
func (s *Stream) AcceptLink(tr transport.Transport) error {
	if err := s.terminal(); err != nil {
		return err
	}

	m, err := s.readMessageTimeout(tr)
	if err != nil {
		tr.Close()
		return err
	}
	al, ok := m.(*wire.ActivateLink)
	if !ok {
		tr.Close()
		return errors.Errorf("unexpected %s while waiting for activate link: %w", m.Kind(), errors.ErrHandshakeFailed)
	}

	// このリンク上のフレームはal.Seq以降のシーケンス番号のみを運ぶ。
	// 相手がActivateAckを受信するまでこちらから送信してはならないため、
	// standbyのまま登録し、Ack送信後に分配対象へ昇格させる。
	l := newLink(tr)
	l.recvFloor = al.Seq
	l.standby.Store(true)
	s.dist.add(l)

	ch.WriteOrDone(s.ctx, &recvEvent{link: l, up: true}, s.evCh)
	s.recvWg.Add(1)
	go s.readLoopLink(l)
	s.logger.Debugf(s.ctx, "Link %s announced first sequence number %d", l.ID(), al.Seq)

	if err := l.Send(&wire.ActivateAck{}); err != nil {
		l.close()
		return errors.Errorf("send activate ack: %v: %w", err, errors.ErrLinkFailed)
	}
	l.standby.Store(false)
	s.logger.Infof(s.ctx, "Attached link %s (%s)", l.ID(), tr.Name())
	return nil
}

// readMessageTimeoutは、ハンドシェイク中のトランスポートからメッセージを1つ、
// タイムアウト付きで読み込みます。
//
// タイムアウト時は読み込み中のゴルーチンを残さないよう、呼び出し側でトランスポートを
// クローズする必要があります。
func (s *Stream) readMessageTimeout(tr transport.Transport) (wire.Message, error) {
	type readRes struct {
		m   wire.Message
		err error
	}
	resCh := make(chan readRes, 1)
	go func() {
		m, err := wire.ReadMessage(tr)
		resCh <- readRes{m: m, err: err}
	}()

	timer := time.NewTimer(s.handshakeTimeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, errors.Errorf("handshake read: %v: %w", res.err, errors.ErrHandshakeFailed)
		}
		return res.m, nil
	case <-timer.C:
		return nil, errors.Errorf("no response within %v: %w", s.handshakeTimeout, errors.ErrHandshakeFailed)
	case <-s.ctx.Done():
		if err := s.terminal(); err != nil {
			return nil, err
		}
		return nil, errors.ErrStreamClosed
	}
}
