package transport

import (
	"net"

	"github.com/kydos/bnd-socket/internal/xio"
)

var _ Transport = (*Conn)(nil)

// Connは、net.Connをラップしたトランスポートです。
//
// TCPをはじめ、net.Connを満たす任意のコネクションをボンディングの下位トランスポートとして
// 利用できます。
type Conn struct {
	conn net.Conn
	name Name

	rd *xio.CaptureReader
	wr *xio.CaptureWriter
}

// NewConnは、net.Connをラップしたトランスポートを返却します。
func NewConn(conn net.Conn) *Conn {
	return NewConnWithName(conn, NameTCP)
}

// NewConnWithNameは、トランスポート名を指定してnet.Connをラップしたトランスポートを返却します。
func NewConnWithName(conn net.Conn, name Name) *Conn {
	return &Conn{
		conn: conn,
		name: name,
		rd:   xio.NewCaptureReader(conn),
		wr:   xio.NewCaptureWriter(conn),
	}
}

// Readは、コネクションからバイト列を読み込みます。
func (c *Conn) Read(p []byte) (int, error) {
	return c.rd.Read(p)
}

// Writeは、コネクションへバイト列を書き込みます。
func (c *Conn) Write(p []byte) (int, error) {
	return c.wr.Write(p)
}

// Closeは、コネクションを切断します。
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Nameは、トランスポート名を返却します。
func (c *Conn) Name() Name {
	return c.name
}

// RxBytesCounterValueは、読み込んだ総バイト数を返却します。
func (c *Conn) RxBytesCounterValue() uint64 {
	return c.rd.ReadBytes()
}

// TxBytesCounterValueは、書き込んだ総バイト数を返却します。
func (c *Conn) TxBytesCounterValue() uint64 {
	return c.wr.WrittenBytes()
}
