package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BoardSize          = 50
	BoardStateLength   = BoardSize * BoardSize // 2500 cells
	MaxBoardNameLength = 50
)

// Board is a saved drawing grid. State holds one '0' or '1' per cell in
// row-major order.
type Board struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Username  string    `json:"userName"`
	Name      string    `json:"boardName"`
	State     string    `json:"board,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

type SaveBoardParams struct {
	UserID uuid.UUID
	Name   string
	State  string
}

func ValidBoardState(state string) bool {
	if len(state) != BoardStateLength {
		return false
	}
	for i := 0; i < len(state); i++ {
		if state[i] != '0' && state[i] != '1' {
			return false
		}
	}
	return true
}
