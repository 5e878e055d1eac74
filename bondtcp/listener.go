package bondtcp

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kydos/bnd-socket/bond"
	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/log"
	"github.com/kydos/bnd-socket/transport"
)

// Listenerは、同一の送信元から確立された複数のTCPコネクションを束ねて受け付けるリスナーです。
type Listener struct {
	ln     net.Listener
	config ListenConfig
	logger log.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingBond
	active  map[uuid.UUID]*bond.Stream
}

// pendingBondは、全コネクションが揃うのを待っている束ね上げ途中の状態です。
type pendingBond struct {
	conns     []net.Conn
	addr      net.Addr
	expiredAt time.Time
}

// Listenは、指定したアドレスで束ね上げの待ち受けを開始します。
func Listen(addr string, c ListenConfig) (*Listener, error) {
	if err := validateListenConfig(&c); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewListener(ln, c)
}

// NewListenerは、既存のnet.Listenerの上で束ね上げの待ち受けを開始します。
func NewListener(ln net.Listener, c ListenConfig) (*Listener, error) {
	if err := validateListenConfig(&c); err != nil {
		return nil, err
	}
	return &Listener{
		ln:      ln,
		config:  c,
		logger:  c.Logger,
		pending: make(map[uuid.UUID]*pendingBond),
		active:  make(map[uuid.UUID]*bond.Stream),
	}, nil
}

// Addrは、待ち受けているローカルアドレスを返却します。
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Closeは、リスナーを閉じます。払い出し済みのストリームは閉じません。
func (l *Listener) Close() error {
	err := l.ln.Close()
	l.mu.Lock()
	for cid, p := range l.pending {
		for _, conn := range p.conns {
			conn.Close()
		}
		delete(l.pending, cid)
	}
	l.mu.Unlock()
	return err
}

// Acceptは、コネクションがWidth本揃った束ね上げ済みのストリームを1つ受け付けます。
//
// 揃うまでの間に受け付けたコネクションは内部に保持されます。稼働中のストリームの
// コネクションIDを名乗る追加のコネクションは、そのストリームへのリンク追加として
// バックグラウンドで処理されます。
func (l *Listener) Accept() (*bond.Stream, net.Addr, error) {
	ctx := context.Background()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return nil, nil, err
		}
		l.logger.Debugf(ctx, "Accepted connection from %v", conn.RemoteAddr())

		var cid uuid.UUID
		if _, err := io.ReadFull(conn, cid[:]); err != nil {
			l.logger.Warnf(ctx, "Failed to read connection ID from %v: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}

		l.removeExpiredPending()

		if st, addr, done := l.registerConn(ctx, cid, conn); done {
			return st, addr, nil
		}
	}
}

// registerConnは、コネクションIDに応じてコネクションを振り分けます。
//
// 束ね上げが完了した場合のみdoneをtrueで返却します。
func (l *Listener) registerConn(ctx context.Context, cid uuid.UUID, conn net.Conn) (*bond.Stream, net.Addr, bool) {
	l.mu.Lock()

	if st, ok := l.active[cid]; ok {
		l.mu.Unlock()
		// 稼働中のストリームへのリンク追加
		go func() {
			if err := st.AcceptLink(transport.NewConn(conn)); err != nil {
				// 候補コネクション単体の失敗でセッションは壊れない。
				// ストリーム自体が終端している場合のみセッションを破棄する。
				l.logger.Warnf(ctx, "Failed to accept additional link for %s: %v", cid, err)
				if errors.Is(err, errors.ErrStreamClosed) || errors.Is(err, errors.ErrAllLinksDown) {
					l.removeSession(cid)
				}
				return
			}
			l.logger.Infof(ctx, "Accepted additional link for %s", cid)
		}()
		return nil, nil, false
	}

	p, ok := l.pending[cid]
	if !ok {
		l.mu.Unlock()
		return l.registerFirstConn(ctx, conn)
	}

	p.conns = append(p.conns, conn)
	l.logger.Debugf(ctx, "Connection %d/%d for %s", len(p.conns), l.config.Width, cid)
	if len(p.conns) < l.config.Width {
		l.mu.Unlock()
		return nil, nil, false
	}

	delete(l.pending, cid)
	st, err := l.bondStream(p.conns)
	if err != nil {
		l.mu.Unlock()
		l.logger.Errorf(ctx, "Failed to bond %s: %v", cid, err)
		for _, c := range p.conns {
			c.Close()
		}
		return nil, nil, false
	}
	l.active[cid] = st
	l.mu.Unlock()
	go l.watchSession(cid, st)

	l.logger.Infof(ctx, "Bonded %d connections from %v as %s", l.config.Width, p.addr, cid)
	return st, p.addr, true
}

// registerFirstConnは、未知のコネクションIDを名乗る最初のコネクションを処理します。
//
// 新しいコネクションIDを払い出し、束ねる本数とともに応答します。
func (l *Listener) registerFirstConn(ctx context.Context, conn net.Conn) (*bond.Stream, net.Addr, bool) {
	cid := uuid.New()
	l.logger.Debugf(ctx, "First connection from %v, issued connection ID %s", conn.RemoteAddr(), cid)

	reply := make([]byte, 0, 1+connIDSize)
	reply = append(reply, byte(l.config.Width))
	reply = append(reply, cid[:]...)
	if _, err := conn.Write(reply); err != nil {
		l.logger.Warnf(ctx, "Failed to reply bond parameters to %v: %v", conn.RemoteAddr(), err)
		conn.Close()
		return nil, nil, false
	}

	if l.config.Width == 1 {
		st, err := l.bondStream([]net.Conn{conn})
		if err != nil {
			l.logger.Errorf(ctx, "Failed to bond %s: %v", cid, err)
			conn.Close()
			return nil, nil, false
		}
		l.mu.Lock()
		l.active[cid] = st
		l.mu.Unlock()
		go l.watchSession(cid, st)
		return st, conn.RemoteAddr(), true
	}

	l.mu.Lock()
	l.pending[cid] = &pendingBond{
		conns:     []net.Conn{conn},
		addr:      conn.RemoteAddr(),
		expiredAt: time.Now().Add(l.config.BondTimeout),
	}
	l.mu.Unlock()
	return nil, nil, false
}

func (l *Listener) bondStream(conns []net.Conn) (*bond.Stream, error) {
	trs := make([]transport.Transport, 0, len(conns))
	for _, conn := range conns {
		trs = append(trs, transport.NewConn(conn))
	}
	return bond.New(bond.Config{
		Transports:       trs,
		Logger:           l.config.Logger,
		HandshakeTimeout: l.config.HandshakeTimeout,
		ReassemblyLimit:  l.config.ReassemblyLimit,
		FragmentSize:     l.config.FragmentSize,
	})
}

// watchSessionは、払い出したストリームの終了を待ってセッションを破棄します。
//
// 破棄後に同じコネクションIDを名乗るコネクションは新規の束ね上げとして扱われます。
func (l *Listener) watchSession(cid uuid.UUID, st *bond.Stream) {
	<-st.Done()
	l.removeSession(cid)
}

func (l *Listener) removeSession(cid uuid.UUID) {
	l.mu.Lock()
	delete(l.active, cid)
	l.mu.Unlock()
}

// removeExpiredPendingは、BondTimeoutを超過した束ね上げ途中の状態を破棄します。
func (l *Listener) removeExpiredPending() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for cid, p := range l.pending {
		if now.After(p.expiredAt) {
			for _, conn := range p.conns {
				conn.Close()
			}
			delete(l.pending, cid)
		}
	}
}
