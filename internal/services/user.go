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
	ErrUserNotFound          = errors.New("user not found")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrNothingToUpdate       = errors.New("no profile fields to update")
)

const userColumns = `id, username, password_hash, email, phone_number, created_at, updated_at`

type UserService struct {
	db DBConn
}

func NewUserService(db DBConn) *UserService {
	return &UserService{db: db}
}

func scanUser(row Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.PhoneNumber, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", params.Username).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking username existence: %w", err)
	}
	if exists {
		return nil, ErrUsernameAlreadyExists
	}

	user, err := scanUser(s.db.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, email, phone_number)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		params.Username, params.PasswordHash, params.Email, params.PhoneNumber,
	))
	if isUniqueViolation(err) {
		return nil, ErrUsernameAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (*models.User, error) {
	if params.Empty() {
		return nil, ErrNothingToUpdate
	}

	if params.Username != nil {
		var taken bool
		err := s.db.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $2)",
			*params.Username, userID,
		).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("checking username existence: %w", err)
		}
		if taken {
			return nil, ErrUsernameAlreadyExists
		}
	}

	user, err := scanUser(s.db.QueryRow(ctx,
		`UPDATE users SET
		   username = COALESCE($2, username),
		   password_hash = COALESCE($3, password_hash),
		   email = COALESCE($4, email),
		   phone_number = COALESCE($5, phone_number),
		   updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, params.Username, params.PasswordHash, params.Email, params.PhoneNumber,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrUsernameAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

// Delete removes the account and everything hanging off it in one
// transaction. Groups and conversations go through the same succession and
// cleanup as a voluntary leave.
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, "SELECT id FROM users WHERE id = $1 FOR UPDATE", userID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("locking user: %w", err)
		}

		groupIDs, err := collectIDs(ctx, tx,
			"SELECT group_id FROM group_members WHERE user_id = $1 ORDER BY group_id", userID)
		if err != nil {
			return fmt.Errorf("listing groups: %w", err)
		}
		for _, groupID := range groupIDs {
			if _, err := withdrawTx(ctx, tx, userID, groupID); err != nil {
				return fmt.Errorf("withdrawing from group %s: %w", groupID, err)
			}
		}

		cascade := []struct {
			what string
			sql  string
		}{
			{"friendship labels", `DELETE FROM friendship_labels WHERE friendship_id IN (
				SELECT id FROM friendships WHERE user_id = $1 OR friend_id = $1)`},
			{"friendships", "DELETE FROM friendships WHERE user_id = $1 OR friend_id = $1"},
			{"friend requests", "DELETE FROM friend_requests WHERE sender_id = $1 OR receiver_id = $1"},
			{"invitations", "DELETE FROM invitations WHERE sender_id = $1 OR receiver_id = $1"},
		}
		for _, step := range cascade {
			if _, err := tx.Exec(ctx, step.sql, userID); err != nil {
				return fmt.Errorf("deleting %s: %w", step.what, err)
			}
		}

		conversationIDs, err := collectIDs(ctx, tx,
			"SELECT conversation_id FROM conversation_members WHERE user_id = $1 ORDER BY conversation_id", userID)
		if err != nil {
			return fmt.Errorf("listing conversations: %w", err)
		}
		for _, conversationID := range conversationIDs {
			if _, err := leaveConversationTx(ctx, tx, userID, conversationID); err != nil {
				return fmt.Errorf("leaving conversation %s: %w", conversationID, err)
			}
		}

		tail := []struct {
			what string
			sql  string
		}{
			{"read receipts", "DELETE FROM message_reads WHERE user_id = $1"},
			{"message receivers", "DELETE FROM message_receivers WHERE user_id = $1"},
			{"message senders", "UPDATE messages SET sender_id = NULL WHERE sender_id = $1"},
			{"announcement authors", "UPDATE announcements SET author_id = NULL WHERE author_id = $1"},
			{"boards", "DELETE FROM boards WHERE user_id = $1"},
			{"user", "DELETE FROM users WHERE id = $1"},
		}
		for _, step := range tail {
			if _, err := tx.Exec(ctx, step.sql, userID); err != nil {
				return fmt.Errorf("deleting %s: %w", step.what, err)
			}
		}
		return nil
	})
}

func collectIDs(ctx context.Context, q Querier, sql string, args ...any) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
