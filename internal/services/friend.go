package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

const maxLabelLength = 64

var (
	ErrCannotFriendSelf      = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends        = errors.New("already friends")
	ErrFriendRequestExists   = errors.New("friend request already pending")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrNotFriend             = errors.New("not in friend list")
	ErrLabelExists           = errors.New("label already exists")
	ErrInvalidLabel          = errors.New("label must be 1-64 characters")
)

type FriendService struct {
	db DBConn
}

func NewFriendService(db DBConn) *FriendService {
	return &FriendService{db: db}
}

const friendRequestColumns = `id, sender_id, receiver_id, status, created_at, responded_at`

func scanFriendRequest(row Row) (*models.FriendRequest, error) {
	req := &models.FriendRequest{}
	err := row.Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt, &req.RespondedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// lockUsers takes row locks on both users in id order so concurrent requests
// between the same pair serialize. Returns ErrUserNotFound if either is gone.
func lockUsers(ctx context.Context, q Querier, a, b uuid.UUID) error {
	ids, err := collectIDs(ctx, q,
		"SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE",
		[]uuid.UUID{a, b},
	)
	if err != nil {
		return fmt.Errorf("locking users: %w", err)
	}
	if len(ids) != 2 {
		return ErrUserNotFound
	}
	return nil
}

func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrCannotFriendSelf
	}

	var request *models.FriendRequest
	err := withTx(ctx, s.db, func(tx Tx) error {
		if err := lockUsers(ctx, tx, senderID, receiverID); err != nil {
			return err
		}

		var friends bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM friendships
				WHERE (user_id = $1 AND friend_id = $2)
				   OR (user_id = $2 AND friend_id = $1)
			)`,
			senderID, receiverID,
		).Scan(&friends)
		if err != nil {
			return fmt.Errorf("checking friendship existence: %w", err)
		}
		if friends {
			return ErrAlreadyFriends
		}

		var pending bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM friend_requests
				WHERE status = 'pending'
				  AND ((sender_id = $1 AND receiver_id = $2)
				    OR (sender_id = $2 AND receiver_id = $1))
			)`,
			senderID, receiverID,
		).Scan(&pending)
		if err != nil {
			return fmt.Errorf("checking pending requests: %w", err)
		}
		if pending {
			return ErrFriendRequestExists
		}

		request, err = scanFriendRequest(tx.QueryRow(ctx,
			`INSERT INTO friend_requests (sender_id, receiver_id, status)
			 VALUES ($1, $2, 'pending')
			 RETURNING `+friendRequestColumns,
			senderID, receiverID,
		))
		if isUniqueViolation(err) {
			return ErrFriendRequestExists
		}
		if err != nil {
			return fmt.Errorf("creating friend request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// RespondRequest settles the pending request from sender to receiver. Only
// the literal models.DecisionAccept accepts; any other decision rejects.
func (s *FriendService) RespondRequest(ctx context.Context, receiverID, senderID uuid.UUID, decision string) (*models.FriendRequest, error) {
	var request *models.FriendRequest
	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		request, err = scanFriendRequest(tx.QueryRow(ctx,
			`SELECT `+friendRequestColumns+`
			 FROM friend_requests
			 WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'
			 FOR UPDATE`,
			senderID, receiverID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrFriendRequestNotFound
		}
		if err != nil {
			return fmt.Errorf("getting friend request: %w", err)
		}

		status := models.FriendRequestRejected
		if decision == models.DecisionAccept {
			status = models.FriendRequestAccepted
			_, err = tx.Exec(ctx,
				`INSERT INTO friendships (user_id, friend_id)
				 VALUES ($1, $2), ($2, $1)
				 ON CONFLICT (user_id, friend_id) DO NOTHING`,
				senderID, receiverID,
			)
			if err != nil {
				return fmt.Errorf("creating friendships: %w", err)
			}
		}

		err = tx.QueryRow(ctx,
			`UPDATE friend_requests SET status = $2, responded_at = NOW()
			 WHERE id = $1
			 RETURNING responded_at`,
			request.ID, status,
		).Scan(&request.RespondedAt)
		if err != nil {
			return fmt.Errorf("updating friend request: %w", err)
		}
		request.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// DeleteFriend removes both directed edges and their labels. It fails without
// changing anything unless both edges exist.
func (s *FriendService) DeleteFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	return withTx(ctx, s.db, func(tx Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM friendship_labels WHERE friendship_id IN (
				SELECT id FROM friendships
				WHERE (user_id = $1 AND friend_id = $2)
				   OR (user_id = $2 AND friend_id = $1))`,
			userID, friendID,
		)
		if err != nil {
			return fmt.Errorf("deleting friendship labels: %w", err)
		}

		result, err := tx.Exec(ctx,
			`DELETE FROM friendships
			 WHERE (user_id = $1 AND friend_id = $2)
			    OR (user_id = $2 AND friend_id = $1)`,
			userID, friendID,
		)
		if err != nil {
			return fmt.Errorf("deleting friendships: %w", err)
		}
		if result.RowsAffected() != 2 {
			return ErrNotFriend
		}
		return nil
	})
}

// LabelFriend tags the userID -> friendID edge only.
func (s *FriendService) LabelFriend(ctx context.Context, userID, friendID uuid.UUID, label string) error {
	label = strings.TrimSpace(label)
	if label == "" || len([]rune(label)) > maxLabelLength {
		return ErrInvalidLabel
	}

	var friendshipID uuid.UUID
	err := s.db.QueryRow(ctx,
		"SELECT id FROM friendships WHERE user_id = $1 AND friend_id = $2",
		userID, friendID,
	).Scan(&friendshipID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFriend
	}
	if err != nil {
		return fmt.Errorf("getting friendship: %w", err)
	}

	result, err := s.db.Exec(ctx,
		`INSERT INTO friendship_labels (friendship_id, label)
		 VALUES ($1, $2)
		 ON CONFLICT (friendship_id, label) DO NOTHING`,
		friendshipID, label,
	)
	if err != nil {
		return fmt.Errorf("adding label: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrLabelExists
	}
	return nil
}

// ListFriends returns userID's friends, restricted to edges carrying label
// when label is non-empty.
func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID, label string) ([]models.FriendWithUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.user_id, f.friend_id, f.created_at, u.username,
		        COALESCE(array_agg(l.label ORDER BY l.label) FILTER (WHERE l.label IS NOT NULL), '{}')
		 FROM friendships f
		 JOIN users u ON u.id = f.friend_id
		 LEFT JOIN friendship_labels l ON l.friendship_id = f.id
		 WHERE f.user_id = $1
		   AND ($2::text = '' OR EXISTS (
		     SELECT 1 FROM friendship_labels x WHERE x.friendship_id = f.id AND x.label = $2::text))
		 GROUP BY f.id, u.username
		 ORDER BY u.username`,
		userID, strings.TrimSpace(label),
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []models.FriendWithUser{}
	for rows.Next() {
		var f models.FriendWithUser
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.CreatedAt, &f.FriendUsername, &f.Labels); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friends: %w", err)
	}
	return friends, nil
}

// ListRequests returns pending requests addressed to userID, newest first.
func (s *FriendService) ListRequests(ctx context.Context, userID uuid.UUID) ([]models.FriendRequestWithSender, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at, r.responded_at, u.username
		 FROM friend_requests r
		 JOIN users u ON u.id = r.sender_id
		 WHERE r.receiver_id = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friend requests: %w", err)
	}
	defer rows.Close()

	requests := []models.FriendRequestWithSender{}
	for rows.Next() {
		var r models.FriendRequestWithSender
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.RespondedAt, &r.SenderUsername); err != nil {
			return nil, fmt.Errorf("scanning friend request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friend requests: %w", err)
	}
	return requests, nil
}
