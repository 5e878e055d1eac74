package websocket

import (
	"fmt"
	"io"
	"net"

	gwebsocket "github.com/gorilla/websocket"

	"github.com/kydos/bnd-socket/errors"
)

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var closeErr *gwebsocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == gwebsocket.CloseNormalClosure || closeErr.Code == gwebsocket.CloseGoingAway {
			// 正常クローズはバイトストリームの終端として扱う
			return io.EOF
		}
		return fmt.Errorf("websocket closed cause[%+v]: %w", closeErr, errors.ErrLinkFailed)
	}
	if isErrTransportClosed(err) {
		return io.EOF
	}
	return fmt.Errorf("websocket: %w", err)
}

func isErrTransportClosed(err error) bool {
	if err, ok := err.(*net.OpError); ok {
		return err.Unwrap().Error() == "use of closed network connection"
	}
	return false
}
