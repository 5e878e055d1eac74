package transport

import "net"

// Pipeは、インメモリで接続されたトランスポートのペアを返却します。
//
// 片方への書き込みはもう片方から読み出されます。主にテストで使用します。
func Pipe() (*Conn, *Conn) {
	c1, c2 := net.Pipe()
	return NewConnWithName(c1, NamePipe), NewConnWithName(c2, NamePipe)
}
