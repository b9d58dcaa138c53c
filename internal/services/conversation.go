package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

var (
	ErrConversationNotFound    = errors.New("conversation not found")
	ErrNotConversationMember   = errors.New("not a member of this conversation")
	ErrInvalidConversationType = errors.New("conversation type must be private_chat or group_chat")
	ErrInvalidMemberCount      = errors.New("private chats need exactly 2 members, group chats at least 3")
)

type ConversationService struct {
	db DBConn
}

func NewConversationService(db DBConn) *ConversationService {
	return &ConversationService{db: db}
}

// Create opens a conversation between creatorID and memberIDs. The creator is
// always included and duplicates are ignored before the size rule applies.
func (s *ConversationService) Create(ctx context.Context, creatorID uuid.UUID, typ models.ConversationType, memberIDs []uuid.UUID) (*models.Conversation, error) {
	if !typ.Valid() {
		return nil, ErrInvalidConversationType
	}
	members := append([]uuid.UUID{creatorID}, normalizeMembers(creatorID, memberIDs)...)
	if !typ.AcceptsMemberCount(len(members)) {
		return nil, ErrInvalidMemberCount
	}

	conversation := &models.Conversation{Type: typ, MemberIDs: members}
	err := withTx(ctx, s.db, func(tx Tx) error {
		found, err := collectIDs(ctx, tx, "SELECT id FROM users WHERE id = ANY($1)", members)
		if err != nil {
			return fmt.Errorf("checking members: %w", err)
		}
		if len(found) != len(members) {
			return ErrUserNotFound
		}

		err = tx.QueryRow(ctx,
			"INSERT INTO conversations (type) VALUES ($1) RETURNING id, created_at",
			typ,
		).Scan(&conversation.ID, &conversation.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id)
			 SELECT $1, t.member
			 FROM unnest($2::uuid[]) WITH ORDINALITY AS t(member, ord)
			 ORDER BY t.ord`,
			conversation.ID, members,
		)
		if err != nil {
			return fmt.Errorf("adding conversation members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT c.id, c.type, c.created_at, array_agg(m.user_id ORDER BY m.joined_at, m.user_id)
		 FROM conversation_members me
		 JOIN conversations c ON c.id = me.conversation_id
		 JOIN conversation_members m ON m.conversation_id = c.id
		 WHERE me.user_id = $1
		 GROUP BY c.id
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.Type, &c.CreatedAt, &c.MemberIDs); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return conversations, nil
}

// Leave removes userID from the conversation and reports whether the
// conversation was deleted because nobody was left.
func (s *ConversationService) Leave(ctx context.Context, userID, conversationID uuid.UUID) (bool, error) {
	var deleted bool
	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		deleted, err = leaveConversationTx(ctx, tx, userID, conversationID)
		return err
	})
	return deleted, err
}

func lockConversation(ctx context.Context, q Querier, conversationID uuid.UUID, mode string) error {
	var id uuid.UUID
	err := q.QueryRow(ctx,
		"SELECT id FROM conversations WHERE id = $1 FOR "+mode,
		conversationID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("locking conversation: %w", err)
	}
	return nil
}

func leaveConversationTx(ctx context.Context, q Querier, userID, conversationID uuid.UUID) (bool, error) {
	if err := lockConversation(ctx, q, conversationID, "UPDATE"); err != nil {
		return false, err
	}

	result, err := q.Exec(ctx,
		"DELETE FROM conversation_members WHERE conversation_id = $1 AND user_id = $2",
		conversationID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("leaving conversation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return false, ErrNotConversationMember
	}

	var remaining int
	err = q.QueryRow(ctx,
		"SELECT COUNT(*) FROM conversation_members WHERE conversation_id = $1",
		conversationID,
	).Scan(&remaining)
	if err != nil {
		return false, fmt.Errorf("counting members: %w", err)
	}
	if remaining > 0 {
		return false, nil
	}

	if err := deleteConversationTx(ctx, q, conversationID); err != nil {
		return false, err
	}
	return true, nil
}

func deleteConversationTx(ctx context.Context, q Querier, conversationID uuid.UUID) error {
	steps := []struct {
		what string
		sql  string
	}{
		{"read receipts", `DELETE FROM message_reads WHERE message_id IN (
			SELECT id FROM messages WHERE conversation_id = $1)`},
		{"receivers", `DELETE FROM message_receivers WHERE message_id IN (
			SELECT id FROM messages WHERE conversation_id = $1)`},
		{"reply links", "UPDATE messages SET reply_to_id = NULL WHERE conversation_id = $1"},
		{"messages", "DELETE FROM messages WHERE conversation_id = $1"},
		{"conversation", "DELETE FROM conversations WHERE id = $1"},
	}
	for _, step := range steps {
		if _, err := q.Exec(ctx, step.sql, conversationID); err != nil {
			return fmt.Errorf("deleting conversation %s: %w", step.what, err)
		}
	}
	return nil
}

// requireConversationMember distinguishes a missing conversation from one the
// user is not part of.
func requireConversationMember(ctx context.Context, q Querier, conversationID, userID uuid.UUID) error {
	var id uuid.UUID
	var isMember bool
	err := q.QueryRow(ctx,
		`SELECT c.id, EXISTS(
			SELECT 1 FROM conversation_members m
			WHERE m.conversation_id = c.id AND m.user_id = $2)
		 FROM conversations c WHERE c.id = $1`,
		conversationID, userID,
	).Scan(&id, &isMember)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("checking conversation membership: %w", err)
	}
	if !isMember {
		return ErrNotConversationMember
	}
	return nil
}
