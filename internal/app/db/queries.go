package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"moodchat/internal/app/message"
	"moodchat/internal/app/user"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the chat server's SQL against a DBTX.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const createChatMessage = `
INSERT INTO chat_messages (content, sender_id, message_type)
VALUES ($1, $2, $3)
RETURNING id, content, sender_id, message_type, created_at`

// CreateChatMessage inserts a message and returns it with the id and
// timestamp assigned by the database.
func (q *Queries) CreateChatMessage(ctx context.Context, arg message.NewChatMessage) (message.ChatMessage, error) {
	if arg.SenderID == "" {
		return message.ChatMessage{}, ErrSenderRequired
	}

	var (
		m       message.ChatMessage
		msgType string
	)
	err := q.db.QueryRow(ctx, createChatMessage, arg.Content, arg.SenderID, string(arg.MessageType.OrDefault())).
		Scan(&m.ID, &m.Content, &m.SenderID, &msgType, &m.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return message.ChatMessage{}, fmt.Errorf("%w: %s", ErrUnknownSender, arg.SenderID)
		}
		return message.ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}

	m.MessageType = message.Type(msgType)
	return m, nil
}

const listChatMessages = `
SELECT m.id, m.content, m.sender_id, m.message_type, m.created_at,
       u.first_name, u.last_name, u.profile_image_url
FROM chat_messages m
LEFT JOIN users u ON u.id = m.sender_id
ORDER BY m.created_at DESC, m.id DESC
LIMIT $1`

// ListChatMessages returns the newest limit messages, newest first.
func (q *Queries) ListChatMessages(ctx context.Context, limit int) ([]message.ChatMessage, error) {
	rows, err := q.db.Query(ctx, listChatMessages, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]message.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m                          message.ChatMessage
			msgType                    string
			firstName, lastName, image pgtype.Text
		)
		if err := rows.Scan(&m.ID, &m.Content, &m.SenderID, &msgType, &m.CreatedAt, &firstName, &lastName, &image); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}

		m.MessageType = message.Type(msgType)
		if firstName.Valid || lastName.Valid || image.Valid {
			m.Sender = &message.Sender{
				FirstName:       firstName.String,
				LastName:        lastName.String,
				ProfileImageURL: image.String,
			}
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

const getUserByID = `
SELECT id, email, first_name, last_name, profile_image_url, role, created_at, updated_at
FROM users
WHERE id = $1`

// GetUserByID loads one user. A missing row yields ErrNotFound.
func (q *Queries) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var (
		u                                 user.User
		email, firstName, lastName, image pgtype.Text
	)
	err := q.db.QueryRow(ctx, getUserByID, id).
		Scan(&u.ID, &email, &firstName, &lastName, &image, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("get user %s: %w", id, err)
	}

	u.Email = email.String
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.ProfileImageURL = image.String
	return u, nil
}

const upsertUser = `
INSERT INTO users (id, email, first_name, last_name, profile_image_url)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
ON CONFLICT (id) DO UPDATE SET
    email = EXCLUDED.email,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    profile_image_url = EXCLUDED.profile_image_url,
    updated_at = now()`

// UpsertUser creates or refreshes a users row. The identity provider calls
// this on sign-in; the chat server uses it for seeding.
func (q *Queries) UpsertUser(ctx context.Context, u user.User) error {
	if _, err := q.db.Exec(ctx, upsertUser, u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL); err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}
