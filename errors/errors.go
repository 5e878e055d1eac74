package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrBondはbnd-socketライブラリで定義されている基底エラーです。
	ErrBond = errors.New("bnd")
	// ErrMalformedMessageは、メッセージのエンコードやデコードに失敗した時のエラーです。
	ErrMalformedMessage = fmt.Errorf("malformed message: %w", ErrBond)
	// ErrFramingTruncatedは、メッセージ本文の受信途中でコネクションが閉じられた場合のエラーです。
	ErrFramingTruncated = fmt.Errorf("framing truncated: %w", ErrBond)
	// ErrLinkFailedは、1本のリンクのトランスポートでI/Oエラーが発生した場合のエラーです。
	//
	// このエラーは該当リンクに対してのみ致命的です。他にリンクが残っている限り、
	// ボンディングされたストリーム自体は動作を継続します。
	ErrLinkFailed = fmt.Errorf("link failed: %w", ErrBond)
	// ErrHandshakeFailedは、リンク追加のハンドシェイクが拒否またはタイムアウトした場合のエラーです。
	ErrHandshakeFailed = fmt.Errorf("handshake failed: %w", ErrBond)
	// ErrAllLinksDownは、生存しているリンクが1本も残っていない場合のエラーです。
	//
	// ストリーム全体に対して致命的であり、以降の読み書きはすべてこのエラーを返します。
	ErrAllLinksDown = fmt.Errorf("all links down: %w", ErrBond)
	// ErrReassemblyOverflowは、リアセンブリバッファが設定された上限を超えた場合のエラーです。
	ErrReassemblyOverflow = fmt.Errorf("reassembly buffer overflow: %w", ErrBond)
	// ErrStreamClosedは、ストリームが閉じられている状態で読み書きをした場合のエラーです。
	ErrStreamClosed = fmt.Errorf("closed bonded stream: %w", ErrBond)
)

func New(text string) error {
	return errors.New(text)
}

func Errorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}
