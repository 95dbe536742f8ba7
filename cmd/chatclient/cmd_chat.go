package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"moodchat/internal/app/message"
	"moodchat/internal/client"
	"moodchat/internal/pkg/logx"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join the chat",
	Long: `Join the chat and stream messages.

Commands:
  /voice <text>   send a voice transcript
  /file <path>    upload a file and send it
  /history [n]    print the last n merged messages
  /disconnect     close the socket (no reconnect)
  /connect        open the socket again
  /status         show connection state
  /quit           leave`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	api := client.NewAPI(serverURL, token, nil)

	self, name := userID, userID
	if self == "" {
		u, err := api.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("resolve identity, pass --user or a valid --token: %w", err)
		}
		self, name = u.ID, u.DisplayName()
	}

	wsURL, err := client.WebSocketURL(serverURL)
	if err != nil {
		return err
	}

	var printMu sync.Mutex
	say := func(format string, args ...any) {
		printMu.Lock()
		defer printMu.Unlock()
		fmt.Fprintf(out, format+"\n", args...)
	}

	session := client.NewSession(client.SessionConfig{
		URL: wsURL,
		OnMessage: func(m message.ChatMessage) {
			printMu.Lock()
			defer printMu.Unlock()
			printMessage(out, m, self)
		},
		OnStateChange: func(connected bool) {
			if connected {
				say("* online")
			} else {
				say("* offline")
			}
		},
	})
	defer session.Disconnect()

	view := client.NewView(session.Live)
	if historyLimit > 0 {
		msgs, err := api.FetchHistory(ctx, historyLimit)
		if err != nil {
			logx.Warn("history unavailable", "error", err.Error())
		} else {
			view.SetHistory(msgs)
			for _, m := range view.Tail(tailSize) {
				printMessage(out, m, self)
			}
		}
	}

	say("Hi %s. Type a message, or /help.", name)
	session.SetIdentity(self)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, line, self, api, session, view, say); quit {
				return nil
			}
		}
	}
}

func handleLine(
	ctx context.Context,
	line, self string,
	api *client.API,
	session *client.Session,
	view *client.View,
	say func(string, ...any),
) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		say("/voice <text>, /file <path>, /history [n], /disconnect, /connect, /status, /quit")

	case "/disconnect":
		session.Disconnect()

	case "/connect":
		if err := session.Connect(ctx); err != nil {
			say("! connect failed: %v", err)
		}

	case "/status":
		say("connected=%t reconnect_attempts=%d", session.IsConnected(), session.Reconnector().Attempts())

	case "/history":
		n := tailSize
		if v, err := strconv.Atoi(arg); err == nil && v > 0 {
			n = v
		}
		for _, m := range view.Tail(n) {
			say("%s", formatLine(m, self))
		}

	case "/voice":
		send(session, arg, message.TypeVoice, say)

	case "/file":
		key, err := uploadFile(ctx, api, arg)
		if err != nil {
			say("! upload failed: %v", err)
			return false
		}
		send(session, key, message.TypeFile, say)

	default:
		send(session, line, message.TypeText, say)
	}
	return false
}

func send(session *client.Session, content string, t message.Type, say func(string, ...any)) {
	if content == "" {
		return
	}
	if err := session.Send(content, t); err != nil {
		if errors.Is(err, client.ErrNotConnected) {
			say("! offline, message not sent")
			return
		}
		say("! send failed: %v", err)
	}
}

func uploadFile(ctx context.Context, api *client.API, path string) (string, error) {
	if path == "" {
		return "", errors.New("usage: /file <path>")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return api.UploadAttachment(ctx, message.TypeFile, filepath.Base(path), f)
}

func formatLine(m message.ChatMessage, self string) string {
	var b strings.Builder
	printMessage(&b, m, self)
	return strings.TrimSuffix(b.String(), "\n")
}
