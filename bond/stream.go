/*
Package bond は、複数のトランスポートコネクションを1本の論理的な順序保証付きバイト
ストリームへ束ねるボンディングエンジンです。

書き込みはフレーム単位でシーケンス番号を採番し、生存しているリンクへラウンドロビンで
分配されます。受信側はリンクごとの受信ループが取り出したフレームを、シーケンス番号に
基づいて元の書き込み順へ並べ直してから読み出し側へ引き渡します。
*/
package bond

import (
	"context"
	"sync"
	"time"

	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/internal/ch"
	"github.com/kydos/bnd-socket/log"
	"github.com/kydos/bnd-socket/transport"
	"github.com/kydos/bnd-socket/wire"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReassemblyLimit  = 1024
	defaultFragmentSize     = 8192
)

// Configは、Streamの設定です。
type Config struct {
	// Transportsは、初期リンクとして登録するトランスポートです。
	// 登録順がそのままラウンドロビン順になります。空の場合はAddLink/AcceptLinkで
	// 追加されるまでリンクなしの状態で生成されます。
	Transports []transport.Transport

	// Loggerは、ストリームが使用するロガーです。nilの場合は何も出力しません。
	Logger log.Logger

	// HandshakeTimeoutは、リンク追加ハンドシェイクの応答待ちタイムアウトです。
	// 0以下の場合はデフォルト値（10秒）が使用されます。
	HandshakeTimeout time.Duration

	// ReassemblyLimitは、保留できる順不同フレーム数の上限です。
	// 超過した場合ストリームはErrReassemblyOverflowで失敗します。
	// 0以下の場合はデフォルト値（1024）が使用されます。
	ReassemblyLimit int

	// FragmentSizeは、1フレームに載せるペイロードの最大バイト数です。
	// これを超える書き込みは複数フレームへ分割されます。
	// 0以下の場合はデフォルト値（8192）が使用されます。
	FragmentSize int
}

// recvEventは、受信ループからdispatchループへ渡されるイベントです。
// upはリンクの参加、frameはフレーム到達、errは受信ループの終了を表します。
type recvEvent struct {
	link  *Link
	up    bool
	frame *wire.Frame
	err   error
}

// Streamは、複数のリンクを束ねた1本の全二重バイトストリームです。
//
// ReadとWriteはそれぞれ並行に呼び出せます。複数のゴルーチンからの並行Writeは
// シーケンス番号の採番が内部で直列化されるため安全ですが、フレーム単位の順序は
// 呼び出し側の到達順に依存します。
type Stream struct {
	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Channel management
	evCh           chan *recvEvent
	readCh         chan []byte
	dispatchDoneCh chan struct{}

	// Synchronization
	recvWg sync.WaitGroup

	// Link management
	dist *distributor

	// Reassembly (dispatchループのみが操作する)
	reasm *reassembly

	// Read leftover
	readMu   sync.Mutex
	leftover []byte

	// Terminal state
	terminalMu  sync.Mutex
	terminalErr error

	handshakeTimeout time.Duration
	fragmentSize     int

	logger log.Logger
}

// Newは、トランスポートの集合からボンディングされたストリームを返却します。
//
// Config.Transportsはハンドシェイク済みとして扱われ、そのままリンクに登録されます。
// 両エンドポイントが同一の集合でストリームを生成している必要があります。
func New(c Config) (*Stream, error) {
	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	s := &Stream{
		evCh:             make(chan *recvEvent, 1024),
		readCh:           make(chan []byte),
		dispatchDoneCh:   make(chan struct{}),
		dist:             &distributor{},
		reasm:            newReassembly(c.ReassemblyLimit),
		handshakeTimeout: c.HandshakeTimeout,
		fragmentSize:     c.FragmentSize,
		logger:           c.Logger,
	}
	s.ctx, s.cancel = context.WithCancel(log.WithTrackStreamID(context.Background()))

	go s.dispatchLoop()

	for _, tr := range c.Transports {
		s.attachLink(tr)
	}

	return s, nil
}

func validateConfig(c *Config) error {
	if c.Logger == nil {
		c.Logger = log.NewNop()
	}
	for _, tr := range c.Transports {
		if tr == nil {
			return errors.New("transport cannot be nil")
		}
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.ReassemblyLimit <= 0 {
		c.ReassemblyLimit = defaultReassemblyLimit
	}
	if c.FragmentSize <= 0 {
		c.FragmentSize = defaultFragmentSize
	}
	return nil
}

// attachLinkは、トランスポートをリンクとして登録し受信ループを開始します。
func (s *Stream) attachLink(tr transport.Transport) *Link {
	l := newLink(tr)
	s.dist.add(l)

	ch.WriteOrDone(s.ctx, &recvEvent{link: l, up: true}, s.evCh)

	s.recvWg.Add(1)
	go s.readLoopLink(l)

	s.logger.Infof(s.ctx, "Attached link %s (%s)", l.ID(), tr.Name())
	return l
}

// readLoopLinkは、1本のリンクからメッセージを読み続けるループです。
//
// フレームはdispatchループへ転送します。受信エラーでリンクをdeadとし、終了イベントを
// 送出してループを終えます。
func (s *Stream) readLoopLink(l *Link) {
	defer s.recvWg.Done()

	ctx := log.WithTrackLinkID(s.ctx, string(l.ID()))
	s.logger.Debugf(ctx, "Starting link read loop")
	defer s.logger.Debugf(ctx, "Stopping link read loop")

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		m, err := l.Receive()
		if err != nil {
			if errors.Is(err, transport.EOF) {
				s.logger.Infof(ctx, "Link closed by peer")
			} else {
				s.logger.Warnf(ctx, "Link receive failed: %v", err)
			}
			ch.WriteOrDone(s.ctx, &recvEvent{link: l, err: err}, s.evCh)
			return
		}

		switch m := m.(type) {
		case *wire.Frame:
			if m.Seq < l.recvFloor {
				// ハンドシェイクで通知された下限を下回るフレームはプロトコル異常
				s.logger.Warnf(ctx, "Frame seq=%d below link floor %d", m.Seq, l.recvFloor)
				continue
			}
			ch.WriteOrDone(s.ctx, &recvEvent{link: l, frame: m}, s.evCh)
		default:
			// アクティブなリンク上のハンドシェイクメッセージはプロトコル異常。
			// リンクは落とさず読み捨てる。
			s.logger.Warnf(ctx, "Unexpected %s on active link", m.Kind())
		}
	}
}

// dispatchLoopは、リアセンブリ状態の唯一の所有者です。
//
// 受信ループからのイベントを1本のチャネルで受け取り、引き渡し可能になったペイロードを
// 順にreadChへ書き込みます。全リンクの受信ループが終了した時点で、1本でも異常終了が
// あればErrAllLinksDownでストリームを失敗させ、全て正常終端であればreadChをクローズして
// 読み出し側へEOFを伝えます。
func (s *Stream) dispatchLoop() {
	defer close(s.dispatchDoneCh)
	defer close(s.readCh)

	var (
		active int
		everUp bool
		failed bool
	)
	for {
		ev, ok := ch.ReadOrDoneOne(s.ctx, s.evCh)
		if !ok {
			return
		}

		switch {
		case ev.up:
			active++
			everUp = true
		case ev.err != nil:
			active--
			if !errors.Is(ev.err, transport.EOF) {
				failed = true
			}
			if active == 0 && everUp {
				if failed {
					s.fail(errors.ErrAllLinksDown)
					return
				}
				// 全リンクが正常終端。readChクローズでEOFを伝える。
				return
			}
		default:
			delivered, stale, err := s.reasm.push(ev.frame.Seq, ev.frame.Payload)
			if stale {
				s.logger.Warnf(s.ctx, "Duplicate or stale frame seq=%d on link %s", ev.frame.Seq, ev.link.ID())
				continue
			}
			if err != nil {
				s.logger.Errorf(s.ctx, "Reassembly failed: %v", err)
				s.fail(err)
				return
			}
			for _, p := range delivered {
				if len(p) == 0 {
					continue
				}
				if !ch.WriteOrDone(s.ctx, p, s.readCh) {
					return
				}
			}
		}
	}
}

// Readは、ボンディングされたストリームからバイト列を読み込みます。
//
// 引き渡されるバイト列は、相手側がWriteに渡した順序を常に保ちます。ストリームが
// 失敗している場合は対応する終端エラーを、全リンクが正常終端した場合は残データを
// 引き渡した後にtransport.EOFを返却します。
func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	if err := s.terminal(); err != nil {
		// 終端後はleftoverも含めて破棄する
		s.leftover = nil
		return 0, err
	}

	if len(s.leftover) > 0 {
		n := copy(p, s.leftover)
		s.leftover = s.leftover[n:]
		return n, nil
	}

	payload, ok := ch.ReadOrDoneOne(s.ctx, s.readCh)
	if !ok {
		if err := s.terminal(); err != nil {
			return 0, err
		}
		// readChクローズ済み: 全リンク正常終端
		return 0, transport.EOF
	}

	n := copy(p, payload)
	if n < len(payload) {
		s.leftover = payload[n:]
	}
	return n, nil
}

// Writeは、バイト列をボンディングされたストリームへ書き込みます。
//
// FragmentSizeを超えるバイト列は複数のフレームへ分割されます。フレームごとに
// シーケンス番号を採番し、生存リンクへラウンドロビンで分配します。選択したリンクの
// 送信に失敗した場合は同じフレームを次の生存リンクで再試行し、生存リンクがなくなった
// 時点でErrAllLinksDownを返却します。
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.terminal(); err != nil {
		return 0, err
	}

	var written int
	for off := 0; off < len(p); {
		end := off + s.fragmentSize
		if end > len(p) {
			end = len(p)
		}
		if err := s.writeFrame(p[off:end]); err != nil {
			return written, err
		}
		written = end
		off = end
	}
	return len(p), nil
}

func (s *Stream) writeFrame(payload []byte) error {
	frame := &wire.Frame{Seq: s.dist.assignSeq(), Payload: payload}
	for {
		l, err := s.dist.next()
		if err != nil {
			s.logger.Errorf(s.ctx, "No live link remains for frame seq=%d", frame.Seq)
			s.fail(errors.ErrAllLinksDown)
			return errors.ErrAllLinksDown
		}
		if err := l.Send(frame); err != nil {
			// Sendが失敗したリンクはdead化済み。同じフレームを次の生存リンクで送る。
			s.logger.Warnf(s.ctx, "Send frame seq=%d on link %s failed: %v (retrying on next link)", frame.Seq, l.ID(), err)
			continue
		}
		return nil
	}
}

// Closeは、ストリームを閉じます。
//
// 冪等です。全ての受信ループを停止し、ブロック中のRead/Write/AddLinkを速やかに
// 終了させます。リアセンブリバッファに残っている引き渡し前のフレームは破棄されます。
func (s *Stream) Close() error {
	s.terminalMu.Lock()
	alreadyTerminal := s.terminalErr != nil
	if !alreadyTerminal {
		s.terminalErr = errors.ErrStreamClosed
	}
	s.terminalMu.Unlock()

	s.cancel()

	var errs error
	for _, l := range s.dist.all() {
		errs = errors.Join(errs, l.close())
	}
	s.recvWg.Wait()
	<-s.dispatchDoneCh

	if alreadyTerminal {
		return nil
	}
	s.logger.Infof(s.ctx, "Stream closed")
	return errs
}

// Doneは、ストリームが終了したときにクローズされるチャネルを返却します。
//
// 明示的なクローズ・全リンク喪失・相手側の正常終端のいずれも終了として扱われます。
// 終了後のストリームが新たにデータを引き渡すことはありません。
func (s *Stream) Done() <-chan struct{} {
	return s.dispatchDoneCh
}

// failは、ストリームを終端エラーへ遷移させます。最初のエラーのみが記録されます。
func (s *Stream) fail(err error) {
	s.terminalMu.Lock()
	if s.terminalErr == nil {
		s.terminalErr = err
	}
	s.terminalMu.Unlock()
	s.cancel()
}

// terminalは、記録済みの終端エラーを返却します。未終端の場合はnilです。
func (s *Stream) terminal() error {
	s.terminalMu.Lock()
	defer s.terminalMu.Unlock()
	return s.terminalErr
}

// LinkIDsは、登録順の全リンク（deadを含む）の識別子を返却します。
func (s *Stream) LinkIDs() []LinkID {
	links := s.dist.all()
	res := make([]LinkID, 0, len(links))
	for _, l := range links {
		res = append(res, l.ID())
	}
	return res
}

// LiveLinkCountは、生存しているリンクの本数を返却します。
func (s *Stream) LiveLinkCount() int {
	return s.dist.liveCount()
}

// RxBytesCounterValueは、全リンクで読み込んだ総バイト数を返却します。
func (s *Stream) RxBytesCounterValue() uint64 {
	var res uint64
	for _, l := range s.dist.all() {
		res += l.RxBytesCounterValue()
	}
	return res
}

// TxBytesCounterValueは、全リンクで書き込んだ総バイト数を返却します。
func (s *Stream) TxBytesCounterValue() uint64 {
	var res uint64
	for _, l := range s.dist.all() {
		res += l.TxBytesCounterValue()
	}
	return res
}
