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
	ErrInvitationNotFound     = errors.New("invitation not found")
	ErrInvitationExists       = errors.New("user already invited to this group")
	ErrNotInvitationRecipient = errors.New("only the invited user can respond")
)

type InvitationService struct {
	db DBConn
}

func NewInvitationService(db DBConn) *InvitationService {
	return &InvitationService{db: db}
}

const invitationColumns = `id, group_id, sender_id, receiver_id, created_at`

func scanInvitation(row Row) (*models.Invitation, error) {
	inv := &models.Invitation{}
	if err := row.Scan(&inv.ID, &inv.GroupID, &inv.SenderID, &inv.ReceiverID, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return inv, nil
}

// Invite records a pending offer for receiverID to join groupID. Any member
// may invite.
func (s *InvitationService) Invite(ctx context.Context, senderID, groupID, receiverID uuid.UUID) (*models.Invitation, error) {
	var invitation *models.Invitation
	err := withTx(ctx, s.db, func(tx Tx) error {
		g, roster, _, err := lockedRoster(ctx, tx, groupID, senderID)
		if err != nil {
			return err
		}
		if _, ok := roster.Find(receiverID); ok {
			return ErrAlreadyGroupMember
		}

		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", receiverID).Scan(&exists); err != nil {
			return fmt.Errorf("checking receiver: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}

		invitation, err = scanInvitation(tx.QueryRow(ctx,
			`INSERT INTO invitations (group_id, sender_id, receiver_id)
			 VALUES ($1, $2, $3)
			 RETURNING `+invitationColumns,
			groupID, senderID, receiverID,
		))
		if isUniqueViolation(err) {
			return ErrInvitationExists
		}
		if err != nil {
			return fmt.Errorf("creating invitation: %w", err)
		}
		invitation.GroupName = g.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

// ListForUser returns invitations addressed to userID, newest first.
func (s *InvitationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Invitation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT i.id, i.group_id, i.sender_id, i.receiver_id, i.created_at, g.name
		 FROM invitations i
		 JOIN groups g ON g.id = i.group_id
		 WHERE i.receiver_id = $1
		 ORDER BY i.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.GroupID, &inv.SenderID, &inv.ReceiverID, &inv.CreatedAt, &inv.GroupName); err != nil {
			return nil, fmt.Errorf("scanning invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invitations: %w", err)
	}
	return invitations, nil
}

// Respond consumes the invitation. Accepting adds the receiver as an ordinary
// member.
func (s *InvitationService) Respond(ctx context.Context, userID, invitationID uuid.UUID, accept bool) (*models.Invitation, error) {
	var invitation *models.Invitation
	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		invitation, err = scanInvitation(tx.QueryRow(ctx,
			`SELECT `+invitationColumns+` FROM invitations WHERE id = $1 FOR UPDATE`,
			invitationID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return fmt.Errorf("getting invitation: %w", err)
		}
		if invitation.ReceiverID != userID {
			return ErrNotInvitationRecipient
		}

		if accept {
			g, err := lockGroup(ctx, tx, invitation.GroupID)
			if err != nil {
				return err
			}
			invitation.GroupName = g.Name
			_, err = tx.Exec(ctx,
				`INSERT INTO group_members (group_id, user_id, role)
				 VALUES ($1, $2, 'member')
				 ON CONFLICT (group_id, user_id) DO NOTHING`,
				invitation.GroupID, userID,
			)
			if err != nil {
				return fmt.Errorf("joining group: %w", err)
			}
		}

		if _, err := tx.Exec(ctx, "DELETE FROM invitations WHERE id = $1", invitationID); err != nil {
			return fmt.Errorf("deleting invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}
