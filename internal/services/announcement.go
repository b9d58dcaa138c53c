package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

var ErrInvalidAnnouncement = errors.New("announcement must be 1-1000 characters")

// AnnouncementService keeps the append-only announcement ledger of each
// group. Editing an announcement appends a new entry.
type AnnouncementService struct {
	db DBConn
}

func NewAnnouncementService(db DBConn) *AnnouncementService {
	return &AnnouncementService{db: db}
}

func (s *AnnouncementService) Post(ctx context.Context, authorID, groupID uuid.UUID, content string) (*models.Announcement, error) {
	content = strings.TrimSpace(content)
	if content == "" || len([]rune(content)) > models.MaxAnnouncementLength {
		return nil, ErrInvalidAnnouncement
	}

	var announcement *models.Announcement
	err := withTx(ctx, s.db, func(tx Tx) error {
		if _, err := lockGroup(ctx, tx, groupID); err != nil {
			return err
		}
		role, err := memberRole(ctx, tx, groupID, authorID)
		if err != nil {
			return err
		}
		if role != models.RoleMonitor && role != models.RoleManager {
			return ErrPermissionDenied
		}

		a := &models.Announcement{GroupID: groupID, Content: content}
		err = tx.QueryRow(ctx,
			`INSERT INTO announcements (author_id, content)
			 VALUES ($1, $2)
			 RETURNING id, author_id, created_at`,
			authorID, content,
		).Scan(&a.ID, &a.AuthorID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating announcement: %w", err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO group_announcements (group_id, announcement_id) VALUES ($1, $2)",
			groupID, a.ID,
		)
		if err != nil {
			return fmt.Errorf("attaching announcement: %w", err)
		}
		announcement = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return announcement, nil
}

// List returns the group's announcements newest first. Members only.
func (s *AnnouncementService) List(ctx context.Context, userID, groupID uuid.UUID) ([]models.Announcement, error) {
	if _, err := memberRole(ctx, s.db, groupID, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT a.id, ga.group_id, a.author_id, a.content, a.created_at
		 FROM group_announcements ga
		 JOIN announcements a ON a.id = ga.announcement_id
		 WHERE ga.group_id = $1
		 ORDER BY a.created_at DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}
	defer rows.Close()

	announcements := []models.Announcement{}
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.ID, &a.GroupID, &a.AuthorID, &a.Content, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning announcement: %w", err)
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating announcements: %w", err)
	}
	return announcements, nil
}
