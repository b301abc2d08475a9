package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/fingenie/internal/protocol"
)

func newChatCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a running FinGenie server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), addr, nil)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()
			go func() {
				<-cmd.Context().Done()
				conn.Close()
			}()
			return chatLoop(conn, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8000/ws/chat", "WebSocket chat URL")
	return cmd
}

// chatLoop prints server frames and answers input prompts from in until the
// server closes the conversation.
func chatLoop(conn *websocket.Conn, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		var f protocol.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch f.Type {
		case protocol.TypeBot:
			printAgent(out, f.Agent, f.Content)
		case protocol.TypeStatus:
			fmt.Fprintln(out, statusStyle.Render(f.Content))
		case protocol.TypeError:
			fmt.Fprintln(out, errorStyle.Render(f.Content))
		case protocol.TypeInputPrompt:
			fmt.Fprint(out, promptStyle.Render("you> "))
			if !scanner.Scan() {
				return scanner.Err()
			}
			reply := strings.TrimSpace(scanner.Text())
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
