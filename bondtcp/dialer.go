package bondtcp

import (
	"context"
	"io"
	"net"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kydos/bnd-socket/bond"
	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/internal/retry"
	"github.com/kydos/bnd-socket/transport"
)

// Connは、束ね上げ済みのクライアント側ストリームです。
//
// bond.Streamの全操作に加えて、同じ宛先へのTCPコネクションを新たに確立して
// リンクとして追加するAddLinkTCPを提供します。
type Conn struct {
	*bond.Stream

	addr   string
	connID uuid.UUID
}

// ConnIDは、サーバーから払い出されたコネクションIDを返却します。
func (c *Conn) ConnID() uuid.UUID {
	return c.connID
}

// AddLinkTCPは、同じ宛先へ新しいTCPコネクションを確立し、稼働中のストリームへ
// リンクとして追加します。
func (c *Conn) AddLinkTCP(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return errors.Errorf("dial additional link: %v: %w", err, errors.ErrHandshakeFailed)
	}
	if _, err := conn.Write(c.connID[:]); err != nil {
		conn.Close()
		return errors.Errorf("send connection ID: %v: %w", err, errors.ErrHandshakeFailed)
	}
	return c.AddLink(transport.NewConn(conn))
}

// Dialは、指定したアドレスへの複数本のTCPコネクションを確立し、1本のボンディングされた
// ストリームとして返却します。
//
// 束ねる本数はサーバー側のListenConfig.Widthに従います。
func Dial(ctx context.Context, addr string, c DialConfig) (*Conn, error) {
	if err := validateDialConfig(&c); err != nil {
		return nil, err
	}

	var d net.Dialer
	first, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	width, connID, err := announce(first)
	if err != nil {
		first.Close()
		return nil, err
	}
	c.Logger.Debugf(ctx, "Server bonds %d connections, connection ID %s", width, connID)

	conns := make([]net.Conn, width)
	conns[0] = first

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i < width; i++ {
		i := i
		g.Go(func() error {
			conn, err := dialSecondary(gctx, d, addr, connID)
			if err != nil {
				return err
			}
			conns[i] = conn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, conn := range conns {
			if conn != nil {
				conn.Close()
			}
		}
		return nil, err
	}

	st, err := bondStream(conns, c)
	if err != nil {
		for _, conn := range conns {
			conn.Close()
		}
		return nil, err
	}
	return &Conn{
		Stream: st,
		addr:   addr,
		connID: connID,
	}, nil
}

// announceは、最初のコネクション上でノンスを送信し、束ねる本数とコネクションIDを
// 受け取ります。
func announce(conn net.Conn) (int, uuid.UUID, error) {
	nonce := uuid.New()
	if _, err := conn.Write(nonce[:]); err != nil {
		return 0, uuid.Nil, errors.Errorf("send nonce: %w", err)
	}

	var reply [1 + connIDSize]byte
	if _, err := io.ReadFull(conn, reply[:]); err != nil {
		return 0, uuid.Nil, errors.Errorf("read bond parameters: %w", err)
	}
	width := int(reply[0])
	if width < 1 {
		return 0, uuid.Nil, errors.Errorf("server announced zero width: %w", errors.ErrMalformedMessage)
	}
	var connID uuid.UUID
	copy(connID[:], reply[1:])
	return width, connID, nil
}

// dialSecondaryは、2本目以降のコネクションを確立しコネクションIDを送信します。
// 確立の失敗はバックオフ付きで数回リトライします。
func dialSecondary(ctx context.Context, d net.Dialer, addr string, connID uuid.UUID) (net.Conn, error) {
	var (
		conn net.Conn
		err  error
	)
	r := retry.Retry{MaxAttempt: 3}
	r.Do(ctx, func() bool {
		conn, err = d.DialContext(ctx, "tcp", addr)
		return err == nil
	})
	if err != nil {
		return nil, errors.Errorf("dial secondary connection: %w", err)
	}
	if _, err := conn.Write(connID[:]); err != nil {
		conn.Close()
		return nil, errors.Errorf("send connection ID: %w", err)
	}
	return conn, nil
}

func bondStream(conns []net.Conn, c DialConfig) (*bond.Stream, error) {
	trs := make([]transport.Transport, 0, len(conns))
	for _, conn := range conns {
		trs = append(trs, transport.NewConn(conn))
	}
	return bond.New(bond.Config{
		Transports:       trs,
		Logger:           c.Logger,
		HandshakeTimeout: c.HandshakeTimeout,
		ReassemblyLimit:  c.ReassemblyLimit,
		FragmentSize:     c.FragmentSize,
	})
}
