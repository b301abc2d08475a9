package http

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/flow"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/protocol"
	"github.com/xiaot623/fingenie/internal/transport/ws"
)

// Chat upgrades the request and runs one advisory flow over the socket.
func (s *Server) Chat(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Default().Warn("failed to upgrade websocket", "error", err)
		return err
	}

	bridge := ws.NewBridge(conn, s.wsOpts, s.metrics)
	err = bridge.Run(c.Request().Context(), s.converse)
	if err != nil && !errors.Is(err, ws.ErrDisconnected) {
		logger.Default().Warn("chat ended with error", "error", err)
	}
	return nil
}

func (s *Server) converse(ctx context.Context, b *ws.Bridge) error {
	fc, err := s.runs.Start(ctx, ws.NewStatusObserver(b), b)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) || b.Closed() {
			return nil
		}
		return b.Send(ctx, protocol.Error("Error in chat process: "+err.Error()))
	}

	for _, msg := range flow.FinalMessages(fc) {
		if err := b.Send(ctx, protocol.Bot(msg.Role, msg.Content)); err != nil {
			return nil
		}
	}
	return nil
}
