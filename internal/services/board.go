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
	ErrBoardNotFound     = errors.New("board not found")
	ErrNotBoardOwner     = errors.New("cannot delete board of other users")
	ErrInvalidBoardName  = errors.New("board name must be 1-50 characters")
	ErrInvalidBoardState = errors.New("board must be 2500 characters of 0 or 1")
)

type BoardService struct {
	db DBConn
}

func NewBoardService(db DBConn) *BoardService {
	return &BoardService{db: db}
}

// Save creates the caller's board with this name or overwrites its state if
// one exists. created reports which happened.
func (s *BoardService) Save(ctx context.Context, params models.SaveBoardParams) (board *models.Board, created bool, err error) {
	name := params.Name
	if name == "" || len([]rune(name)) > models.MaxBoardNameLength {
		return nil, false, ErrInvalidBoardName
	}
	if !models.ValidBoardState(params.State) {
		return nil, false, ErrInvalidBoardState
	}

	board = &models.Board{}
	err = s.db.QueryRow(ctx,
		`WITH upserted AS (
			INSERT INTO boards (user_id, name, state)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, name) DO UPDATE
			  SET state = EXCLUDED.state, updated_at = NOW()
			RETURNING id, user_id, name, state, created_at, updated_at, (xmax = 0) AS inserted
		)
		SELECT up.id, up.user_id, u.username, up.name, up.state, up.created_at, up.updated_at, up.inserted
		FROM upserted up
		JOIN users u ON u.id = up.user_id`,
		params.UserID, name, params.State,
	).Scan(&board.ID, &board.UserID, &board.Username, &board.Name, &board.State, &board.CreatedAt, &board.UpdatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("saving board: %w", err)
	}
	return board, created, nil
}

func (s *BoardService) Get(ctx context.Context, boardID uuid.UUID) (*models.Board, error) {
	board := &models.Board{}
	err := s.db.QueryRow(ctx,
		`SELECT b.id, b.user_id, u.username, b.name, b.state, b.created_at, b.updated_at
		 FROM boards b JOIN users u ON u.id = b.user_id
		 WHERE b.id = $1`,
		boardID,
	).Scan(&board.ID, &board.UserID, &board.Username, &board.Name, &board.State, &board.CreatedAt, &board.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBoardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting board: %w", err)
	}
	return board, nil
}

func (s *BoardService) Delete(ctx context.Context, userID, boardID uuid.UUID) error {
	var ownerID uuid.UUID
	err := s.db.QueryRow(ctx, "SELECT user_id FROM boards WHERE id = $1", boardID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBoardNotFound
	}
	if err != nil {
		return fmt.Errorf("getting board owner: %w", err)
	}
	if ownerID != userID {
		return ErrNotBoardOwner
	}

	result, err := s.db.Exec(ctx, "DELETE FROM boards WHERE id = $1 AND user_id = $2", boardID, userID)
	if err != nil {
		return fmt.Errorf("deleting board: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBoardNotFound
	}
	return nil
}

// List returns every board newest first, without cell state.
func (s *BoardService) List(ctx context.Context) ([]models.Board, error) {
	return s.listBoards(ctx,
		`SELECT b.id, b.user_id, u.username, b.name, b.created_at
		 FROM boards b JOIN users u ON u.id = b.user_id
		 ORDER BY b.created_at DESC`)
}

func (s *BoardService) ListByUsername(ctx context.Context, username string) ([]models.Board, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	return s.listBoards(ctx,
		`SELECT b.id, b.user_id, u.username, b.name, b.created_at
		 FROM boards b JOIN users u ON u.id = b.user_id
		 WHERE u.username = $1
		 ORDER BY b.created_at DESC`,
		username)
}

func (s *BoardService) listBoards(ctx context.Context, sql string, args ...any) ([]models.Board, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	defer rows.Close()

	boards := []models.Board{}
	for rows.Next() {
		var b models.Board
		if err := rows.Scan(&b.ID, &b.UserID, &b.Username, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating boards: %w", err)
	}
	return boards, nil
}
