/*
bnd-socketは、同一の2エンドポイント間に張られた複数の独立したトランスポートコネクションを、
1本の論理的な順序保証付きバイトストリームへ束ね上げる（ソケットボンディング）ための実装パッケージです。

複数のコネクションを並列に利用することでスループットを向上させ、1本のコネクションの
輻輳や切断の影響を局所化します。書き込まれたバイト列はフレームへ分割され、
シーケンス番号を付与してリンクへラウンドロビンで分配されます。受信側はシーケンス番号に
基づいてフレームを並べ替え、元のバイト列として復元します。

パッケージ構成:

  - bond: ボンディングエンジン本体（リンク管理、ラウンドロビン分配、リアセンブリ）
  - wire: 長さプレフィックス付きワイヤプロトコルのコーデック
  - transport: 下位トランスポートの抽象化（net.Conn、WebSocket）
  - bondtcp: TCPコネクションの束ね上げ（リスナー・ダイヤラー）

# Server

このサンプルではTCPコネクションを2本束ねて待ち受け、受信したバイト列を読み込みます。

	package main

	import (
		"io"
		"log"

		"github.com/kydos/bnd-socket/bondtcp"
	)

	func main() {
		ln, err := bondtcp.Listen("127.0.0.1:8080", bondtcp.ListenConfig{Width: 2})
		if err != nil {
			log.Fatal(err)
		}
		defer ln.Close()

		st, addr, err := ln.Accept()
		if err != nil {
			log.Fatal(err)
		}
		defer st.Close()
		log.Printf("accepted bonded stream from %v", addr)

		buf := make([]byte, 1024)
		for {
			n, err := st.Read(buf)
			if err == io.EOF {
				return
			}
			if err != nil {
				log.Fatal(err)
			}
			log.Printf("read %d bytes", n)
		}
	}

# Client

クライアントは宛先へ接続すると、サーバー側の設定に従った本数のTCPコネクションを
自動的に確立して束ね上げます。束ね上げ後のストリームはio.ReadWriteCloserとして扱えます。

	package main

	import (
		"context"
		"log"

		"github.com/kydos/bnd-socket/bondtcp"
	)

	func main() {
		conn, err := bondtcp.Dial(context.Background(), "127.0.0.1:8080", bondtcp.DialConfig{})
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()

		if _, err := conn.Write([]byte("hello")); err != nil {
			log.Fatal(err)
		}
	}

稼働中のストリームへは、AddLinkTCPで後からリンクを追加できます。TCP以外のトランスポートを
束ねる場合は、transport.Transportを実装した値をbond.Newへ直接渡します。
*/
package bndsocket
