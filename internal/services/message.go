package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

var (
	ErrInvalidMessage      = errors.New("message must be 1-4000 characters")
	ErrMessageNotFound     = errors.New("message not found")
	ErrReplyTargetNotFound = errors.New("reply target not found in this conversation")
	ErrNotMessageSender    = errors.New("only the sender can delete a message")
)

// Notifier is told about every stored message. Delivery is best effort and
// never fails the post.
type Notifier interface {
	NotifyMessage(ctx context.Context, recipients []uuid.UUID, msg *models.Message)
}

type MessageService struct {
	db              DBConn
	notifier        Notifier
	defaultPageSize int
	maxPageSize     int
}

func NewMessageService(db DBConn, notifier Notifier, defaultPageSize, maxPageSize int) *MessageService {
	return &MessageService{
		db:              db,
		notifier:        notifier,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// Post appends a message. The current member list becomes the receiver set,
// the sender counts as having read it, and a reply bumps its target's
// response count.
func (s *MessageService) Post(ctx context.Context, params models.PostMessageParams) (*models.Message, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" || len([]rune(content)) > models.MaxMessageLength {
		return nil, ErrInvalidMessage
	}

	msg := &models.Message{
		ConversationID: params.ConversationID,
		Content:        content,
		ReplyToID:      params.ReplyToID,
	}
	err := withTx(ctx, s.db, func(tx Tx) error {
		// Shared lock: concurrent posts proceed, a leave waits.
		if err := lockConversation(ctx, tx, params.ConversationID, "SHARE"); err != nil {
			return err
		}

		members, err := collectIDs(ctx, tx,
			`SELECT user_id FROM conversation_members
			 WHERE conversation_id = $1
			 ORDER BY joined_at, user_id`,
			params.ConversationID,
		)
		if err != nil {
			return fmt.Errorf("loading members: %w", err)
		}
		if !slices.Contains(members, params.SenderID) {
			return ErrNotConversationMember
		}

		if params.ReplyToID != nil {
			result, err := tx.Exec(ctx,
				`UPDATE messages SET response_count = response_count + 1
				 WHERE id = $1 AND conversation_id = $2`,
				*params.ReplyToID, params.ConversationID,
			)
			if err != nil {
				return fmt.Errorf("updating reply target: %w", err)
			}
			if result.RowsAffected() == 0 {
				return ErrReplyTargetNotFound
			}
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO messages (conversation_id, sender_id, content, reply_to_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, sender_id, created_at`,
			params.ConversationID, params.SenderID, content, params.ReplyToID,
		).Scan(&msg.ID, &msg.SenderID, &msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating message: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO message_receivers (message_id, user_id)
			 SELECT $1, unnest($2::uuid[])`,
			msg.ID, members,
		)
		if err != nil {
			return fmt.Errorf("recording receivers: %w", err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)",
			msg.ID, params.SenderID,
		)
		if err != nil {
			return fmt.Errorf("marking sender read: %w", err)
		}

		msg.Receivers = members
		msg.AlreadyRead = []uuid.UUID{params.SenderID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyMessage(context.WithoutCancel(ctx), msg.Receivers, msg)
	}
	return msg, nil
}

func (s *MessageService) pageSize(limit int) int {
	if limit <= 0 {
		return s.defaultPageSize
	}
	if limit > s.maxPageSize {
		return s.maxPageSize
	}
	return limit
}

// List pages through a conversation oldest first, starting strictly after
// params.After. Every returned message is marked read by the caller.
func (s *MessageService) List(ctx context.Context, params models.ListMessagesParams) (*models.MessagePage, error) {
	if err := requireConversationMember(ctx, s.db, params.ConversationID, params.UserID); err != nil {
		return nil, err
	}
	limit := s.pageSize(params.Limit)

	rows, err := s.db.Query(ctx,
		`SELECT m.id, m.conversation_id, m.sender_id, m.content, m.created_at, m.reply_to_id, m.response_count,
		        COALESCE((SELECT array_agg(r.user_id ORDER BY r.read_at, r.user_id)
		                  FROM message_reads r WHERE r.message_id = m.id), '{}'),
		        COALESCE((SELECT array_agg(x.user_id ORDER BY x.user_id)
		                  FROM message_receivers x WHERE x.message_id = m.id), '{}')
		 FROM messages m
		 WHERE m.conversation_id = $1
		   AND ($2::timestamptz IS NULL OR m.created_at > $2::timestamptz)
		 ORDER BY m.created_at, m.id
		 LIMIT $3`,
		params.ConversationID, params.After, limit+1,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt,
			&m.ReplyToID, &m.ResponseCount, &m.AlreadyRead, &m.Receivers); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	page := &models.MessagePage{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		page.HasMore = true
	}

	unread := make([]uuid.UUID, 0, len(page.Messages))
	for i := range page.Messages {
		if !slices.Contains(page.Messages[i].AlreadyRead, params.UserID) {
			unread = append(unread, page.Messages[i].ID)
			page.Messages[i].AlreadyRead = append(page.Messages[i].AlreadyRead, params.UserID)
		}
	}
	if len(unread) > 0 {
		_, err := s.db.Exec(ctx,
			`INSERT INTO message_reads (message_id, user_id)
			 SELECT unnest($1::uuid[]), $2
			 ON CONFLICT (message_id, user_id) DO NOTHING`,
			unread, params.UserID,
		)
		if err != nil {
			return nil, fmt.Errorf("marking messages read: %w", err)
		}
	}
	return page, nil
}

// MarkRead records a read receipt. Repeating it is a no-op.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	var conversationID uuid.UUID
	err := s.db.QueryRow(ctx,
		"SELECT conversation_id FROM messages WHERE id = $1",
		messageID,
	).Scan(&conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("getting message: %w", err)
	}

	if err := requireConversationMember(ctx, s.db, conversationID, userID); err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO message_reads (message_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (message_id, user_id) DO NOTHING`,
		messageID, userID,
	)
	if err != nil {
		return fmt.Errorf("marking message read: %w", err)
	}
	return nil
}

// Delete removes a message its sender no longer wants. Replies to it stay
// but lose their link, and the message it answered loses one response.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx Tx) error {
		var senderID, replyToID *uuid.UUID
		err := tx.QueryRow(ctx,
			"SELECT sender_id, reply_to_id FROM messages WHERE id = $1 FOR UPDATE",
			messageID,
		).Scan(&senderID, &replyToID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotFound
		}
		if err != nil {
			return fmt.Errorf("getting message: %w", err)
		}
		if senderID == nil || *senderID != userID {
			return ErrNotMessageSender
		}

		if replyToID != nil {
			_, err = tx.Exec(ctx,
				"UPDATE messages SET response_count = GREATEST(response_count - 1, 0) WHERE id = $1",
				*replyToID,
			)
			if err != nil {
				return fmt.Errorf("updating reply target: %w", err)
			}
		}

		steps := []struct {
			what string
			sql  string
		}{
			{"reply links", "UPDATE messages SET reply_to_id = NULL WHERE reply_to_id = $1"},
			{"read receipts", "DELETE FROM message_reads WHERE message_id = $1"},
			{"receivers", "DELETE FROM message_receivers WHERE message_id = $1"},
			{"message", "DELETE FROM messages WHERE id = $1"},
		}
		for _, step := range steps {
			if _, err := tx.Exec(ctx, step.sql, messageID); err != nil {
				return fmt.Errorf("deleting %s: %w", step.what, err)
			}
		}
		return nil
	})
}
