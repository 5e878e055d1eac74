package wire

import (
	"encoding/binary"
	"io"

	"github.com/kydos/bnd-socket/errors"
)

const (
	lengthPrefixSize = 4
	kindSize         = 1
	seqSize          = 8

	// DefaultMaxMessageSizeは、受信を許容するメッセージ本文の最大サイズです。
	// 長さプレフィックスがこの値を超えた場合、デコードはErrMalformedMessageで失敗します。
	DefaultMaxMessageSize = 16 * 1024 * 1024
)

// Encodeは、メッセージを本文のバイト列へエンコードします。
//
// エンコードは整形式の入力に対して常に成功します。
func Encode(m Message) []byte {
	switch msg := m.(type) {
	case *Frame:
		bs := make([]byte, kindSize+seqSize, kindSize+seqSize+len(msg.Payload))
		bs[0] = byte(KindFrame)
		binary.BigEndian.PutUint64(bs[kindSize:], msg.Seq)
		return append(bs, msg.Payload...)
	case *ActivateLink:
		bs := make([]byte, kindSize+seqSize)
		bs[0] = byte(KindActivateLink)
		binary.BigEndian.PutUint64(bs[kindSize:], msg.Seq)
		return bs
	case *ActivateAck:
		return []byte{byte(KindActivateAck)}
	default:
		// Messageの実装は3種に閉じている
		panic("wire: unknown message type")
	}
}

// Decodeは、本文のバイト列をメッセージへデコードします。
//
// 本文が既知の種別へ解釈できない場合はErrMalformedMessageを返却します。
func Decode(body []byte) (Message, error) {
	if len(body) < kindSize {
		return nil, errors.Errorf("empty body: %w", errors.ErrMalformedMessage)
	}
	kind := Kind(body[0])
	body = body[kindSize:]
	switch kind {
	case KindFrame:
		if len(body) < seqSize {
			return nil, errors.Errorf("frame body too short (%d bytes): %w", len(body), errors.ErrMalformedMessage)
		}
		return &Frame{
			Seq:     binary.BigEndian.Uint64(body[:seqSize]),
			Payload: body[seqSize:],
		}, nil
	case KindActivateLink:
		if len(body) != seqSize {
			return nil, errors.Errorf("activate link body must be %d bytes, got %d: %w", seqSize, len(body), errors.ErrMalformedMessage)
		}
		return &ActivateLink{
			Seq: binary.BigEndian.Uint64(body),
		}, nil
	case KindActivateAck:
		if len(body) != 0 {
			return nil, errors.Errorf("activate ack body must be empty, got %d bytes: %w", len(body), errors.ErrMalformedMessage)
		}
		return &ActivateAck{}, nil
	default:
		return nil, errors.Errorf("unknown message kind %d: %w", uint8(kind), errors.ErrMalformedMessage)
	}
}

// WriteMessageは、長さプレフィックスを付与したメッセージをwrへ書き込みます。
//
// プレフィックスと本文は1回のWriteで書き込みます。同一Writerへの並行書き込みで
// メッセージのバイト列が混ざらないよう、呼び出し側で直列化してください。
func WriteMessage(wr io.Writer, m Message) error {
	body := Encode(m)
	bs := make([]byte, lengthPrefixSize, lengthPrefixSize+len(body))
	binary.BigEndian.PutUint32(bs, uint32(len(body)))
	bs = append(bs, body...)
	if _, err := wr.Write(bs); err != nil {
		return errors.Errorf("write message: %w", err)
	}
	return nil
}

// ReadMessageは、rdから長さプレフィックス付きのメッセージを1つ読み込みデコードします。
//
// メッセージ境界でのEOFはio.EOFを返却します。本文の途中でコネクションが閉じられた場合は
// ErrFramingTruncatedを返却します。
func ReadMessage(rd io.Reader) (Message, error) {
	return ReadMessageLimit(rd, DefaultMaxMessageSize)
}

// ReadMessageLimitは、本文の最大サイズを指定してメッセージを1つ読み込みます。
func ReadMessageLimit(rd io.Reader, maxSize uint32) (Message, error) {
	var prefix [lengthPrefixSize]byte
	if _, err := io.ReadFull(rd, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Errorf("length prefix: %w", errors.ErrFramingTruncated)
		}
		return nil, errors.Errorf("read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if length > maxSize {
		return nil, errors.Errorf("message body %d bytes exceeds limit %d: %w", length, maxSize, errors.ErrMalformedMessage)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(rd, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Errorf("message body: %w", errors.ErrFramingTruncated)
		}
		return nil, errors.Errorf("read message body: %w", err)
	}
	return Decode(body)
}
