package log

import (
	"context"
	"fmt"
	"math/rand"
)

// Loggerは、bnd-socket内で使用するロガーインターフェースです。
type Logger interface {
	Infof(context.Context, string, ...interface{})
	Warnf(context.Context, string, ...interface{})
	Errorf(context.Context, string, ...interface{})
	Debugf(context.Context, string, ...interface{})
}

var (
	trackStreamIDKey = "trackStreamIDKey"
	trackLinkIDKey   = "trackLinkIDKey"
)

// WithTrackStreamIDは、新たにストリームIDを採番しコンテキストにセットします。
//
// ストリームIDはボンディングストリームが生成されたタイミングでセットします。
// ここで設定されたストリームIDは常にログ出力します。
func WithTrackStreamID(ctx context.Context) context.Context {
	return context.WithValue(ctx, &trackStreamIDKey, genTrackID())
}

// TrackStreamIDは、コンテキストにセットされたストリームIDを取得します。
func TrackStreamID(ctx context.Context) string {
	v, ok := ctx.Value(&trackStreamIDKey).(string)
	if !ok {
		return ""
	}
	return v
}

// WithTrackLinkIDは、リンクIDをコンテキストにセットします。
//
// リンクIDはリンクがストリームに参加したタイミングでセットします。
func WithTrackLinkID(ctx context.Context, linkID string) context.Context {
	return context.WithValue(ctx, &trackLinkIDKey, linkID)
}

// TrackLinkIDは、コンテキストにセットされたリンクIDを取得します。
func TrackLinkID(ctx context.Context) string {
	v, ok := ctx.Value(&trackLinkIDKey).(string)
	if !ok {
		return ""
	}
	return v
}

func genTrackID() string {
	return fmt.Sprintf("%04d-%04d-%04d", rand.Int31n(10000), rand.Int31n(10000), rand.Int31n(10000))
}
