package handler

import (
	"context"

	"moodchat/internal/app/chat"
	"moodchat/internal/app/message"
	"moodchat/internal/app/storage"
	"moodchat/internal/app/user"
	"moodchat/internal/configs"
)

// HistoryReader returns the most recent messages, newest first.
type HistoryReader interface {
	ListChatMessages(ctx context.Context, limit int) ([]message.ChatMessage, error)
}

// UserReader loads a user row by id.
type UserReader interface {
	GetUserByID(ctx context.Context, id string) (user.User, error)
}

type AppDeps struct {
	Hub     *chat.Hub
	Config  *configs.AppConfig
	History HistoryReader
	Users   UserReader

	// Storage is nil when S3 is not configured; file endpoints then reply
	// with ErrFileStorageDisabled.
	Storage storage.StorageService
}
