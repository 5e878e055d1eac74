package wire_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kydos/bnd-socket/errors"
	. "github.com/kydos/bnd-socket/wire"
)

func TestEncode_Frame(t *testing.T) {
	bs := Encode(&Frame{Seq: 0x0102030405060708, Payload: []byte("hello")})
	require.Equal(t, byte(KindFrame), bs[0])
	assert.Equal(t, uint64(0x0102030405060708), binary.BigEndian.Uint64(bs[1:9]))
	assert.Equal(t, []byte("hello"), bs[9:])
}

func TestWriteMessage_長さプレフィックス(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, &Frame{Seq: 1, Payload: []byte("abc")}))

	bs := buf.Bytes()
	// [4バイトBE長さ][kind 1][seq 8][payload 3]
	require.Equal(t, uint32(12), binary.BigEndian.Uint32(bs[:4]))
	assert.Len(t, bs, 16)
}

func TestReadMessage(t *testing.T) {
	t.Run("3種のメッセージを順に読み出せる", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, &ActivateLink{Seq: 42}))
		require.NoError(t, WriteMessage(&buf, &ActivateAck{}))
		require.NoError(t, WriteMessage(&buf, &Frame{Seq: 42, Payload: []byte("payload")}))

		m, err := ReadMessage(&buf)
		require.NoError(t, err)
		require.IsType(t, &ActivateLink{}, m)
		assert.Equal(t, uint64(42), m.(*ActivateLink).Seq)

		m, err = ReadMessage(&buf)
		require.NoError(t, err)
		require.IsType(t, &ActivateAck{}, m)

		m, err = ReadMessage(&buf)
		require.NoError(t, err)
		require.IsType(t, &Frame{}, m)
		assert.Equal(t, uint64(42), m.(*Frame).Seq)
		assert.Equal(t, []byte("payload"), m.(*Frame).Payload)
	})

	t.Run("空ペイロードのフレーム", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, &Frame{Seq: 0}))

		m, err := ReadMessage(&buf)
		require.NoError(t, err)
		assert.Empty(t, m.(*Frame).Payload)
	})

	t.Run("メッセージ境界のEOF", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader(nil))
		assert.Equal(t, io.EOF, err)
	})

	t.Run("長さプレフィックスの途中で切断", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader([]byte{0x00, 0x00}))
		assert.ErrorIs(t, err, errors.ErrFramingTruncated)
	})

	t.Run("本文の途中で切断", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(&buf, &Frame{Seq: 1, Payload: []byte("truncated")}))
		bs := buf.Bytes()

		_, err := ReadMessage(bytes.NewReader(bs[:len(bs)-3]))
		assert.ErrorIs(t, err, errors.ErrFramingTruncated)
	})

	t.Run("上限超過の長さプレフィックス", func(t *testing.T) {
		bs := []byte{0xFF, 0xFF, 0xFF, 0xFF}
		_, err := ReadMessage(bytes.NewReader(bs))
		assert.ErrorIs(t, err, errors.ErrMalformedMessage)
	})
}

func TestDecode_不正な本文(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "空の本文", body: nil},
		{name: "未知の種別", body: []byte{0xEE, 0x00}},
		{name: "短すぎるフレーム", body: append([]byte{byte(KindFrame)}, make([]byte, 4)...)},
		{name: "長すぎるActivateLink", body: append([]byte{byte(KindActivateLink)}, make([]byte, 9)...)},
		{name: "本文付きActivateAck", body: []byte{byte(KindActivateAck), 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.body)
			assert.ErrorIs(t, err, errors.ErrMalformedMessage)
		})
	}
}
