/*
Package bondtcp は、同一アドレスへの複数本のTCPコネクションを1本のボンディングされた
ストリームへ束ね上げるリスナーとダイヤラーを提供します。

束ね上げの手順:

 1. クライアントは最初のコネクションを確立し、16バイトのノンスを送信します。
 2. サーバーは束ねる本数（1バイト）と払い出したコネクションID（16バイト）を応答します。
 3. クライアントは残りのコネクションを確立し、それぞれの先頭でコネクションIDを送信します。
 4. サーバーは同一コネクションIDのコネクションが揃った時点で1本のストリームへ束ねます。

束ね上げ完了後のコネクションIDは有効なまま残り、同じIDを名乗る追加のコネクションは
稼働中のストリームへのリンク追加ハンドシェイクとして扱われます。
*/
package bondtcp

import (
	"time"

	"github.com/kydos/bnd-socket/errors"
	"github.com/kydos/bnd-socket/log"
)

const (
	connIDSize = 16
	maxWidth   = 255

	defaultBondTimeout = 30 * time.Second
)

// ListenConfigは、Listenerの設定です。
type ListenConfig struct {
	// Widthは、1本のストリームへ束ねるTCPコネクションの本数です。1〜255。
	Width int

	// BondTimeoutは、最初のコネクションから全コネクションが揃うまでの待ち時間です。
	// 超過した束ね上げ途中のコネクションは破棄されます。
	// 0以下の場合はデフォルト値（30秒）が使用されます。
	BondTimeout time.Duration

	// Loggerは、リスナーと生成されるストリームが使用するロガーです。
	Logger log.Logger

	// HandshakeTimeoutは、生成されるストリームのリンク追加タイムアウトです。
	HandshakeTimeout time.Duration

	// ReassemblyLimitは、生成されるストリームの保留フレーム数上限です。
	ReassemblyLimit int

	// FragmentSizeは、生成されるストリームのフレーム分割サイズです。
	FragmentSize int
}

func validateListenConfig(c *ListenConfig) error {
	if c.Width < 1 || c.Width > maxWidth {
		return errors.Errorf("width must be in [1, %d], got %d", maxWidth, c.Width)
	}
	if c.BondTimeout <= 0 {
		c.BondTimeout = defaultBondTimeout
	}
	if c.Logger == nil {
		c.Logger = log.NewNop()
	}
	return nil
}

// DialConfigは、Dialの設定です。
type DialConfig struct {
	// Loggerは、生成されるストリームが使用するロガーです。
	Logger log.Logger

	// HandshakeTimeoutは、生成されるストリームのリンク追加タイムアウトです。
	HandshakeTimeout time.Duration

	// ReassemblyLimitは、生成されるストリームの保留フレーム数上限です。
	ReassemblyLimit int

	// FragmentSizeは、生成されるストリームのフレーム分割サイズです。
	FragmentSize int
}

func validateDialConfig(c *DialConfig) error {
	if c.Logger == nil {
		c.Logger = log.NewNop()
	}
	return nil
}
