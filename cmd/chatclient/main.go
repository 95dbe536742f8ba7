/*
Package main is a terminal client for the chat server.

	chatclient chat --server http://localhost:8080 --token $TOKEN
	chatclient history --tail 20
	chatclient token --user u1
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"moodchat/internal/app/message"
	"moodchat/internal/pkg/logx"
)

var (
	serverURL    string
	token        string
	userID       string
	historyLimit int
	tailSize     int
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "chatclient",
	Short: "Terminal client for the moodchat server",
	Long: `chatclient connects to a moodchat server, prints the recent history and
streams new messages. Lines typed on stdin are sent as chat messages.

Flags fall back to MOODCHAT_SERVER, MOODCHAT_TOKEN and MOODCHAT_USER.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		envFallback(cmd, "server", "MOODCHAT_SERVER", &serverURL)
		envFallback(cmd, "token", "MOODCHAT_TOKEN", &token)
		envFallback(cmd, "user", "MOODCHAT_USER", &userID)

		logx.InitGlobalLogger(logx.Options{Level: logLevel, Pretty: true, Out: os.Stderr})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Identity token for the REST API")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id to announce (default: the token's user)")
	rootCmd.PersistentFlags().IntVar(&historyLimit, "history", 50, "Number of messages to fetch on start (0 to skip)")
	rootCmd.PersistentFlags().IntVar(&tailSize, "tail", 20, "Number of merged messages to print")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// envFallback sets *dst from env when the flag was not given.
func envFallback(cmd *cobra.Command, flag, env string, dst *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func printMessage(w io.Writer, m message.ChatMessage, self string) {
	name := m.SenderID
	switch {
	case m.SenderID == self:
		name = "you"
	case m.Sender != nil && m.Sender.FirstName != "":
		name = m.Sender.FirstName
	}

	content := m.Content
	if m.MessageType != message.TypeText {
		content = fmt.Sprintf("[%s] %s", m.MessageType, m.Content)
	}

	fmt.Fprintf(w, "%s  %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), name, content)
}
