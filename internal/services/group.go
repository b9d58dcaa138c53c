package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/circleboard/internal/models"
)

var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrNotGroupMember     = errors.New("not a member of this group")
	ErrTargetNotMember    = errors.New("target user is not a member of this group")
	ErrNotGroupMonitor    = errors.New("only the group monitor can do this")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAlreadyMonitor     = errors.New("user is already the monitor")
	ErrAlreadyManager     = errors.New("user is already a manager")
	ErrCannotRemoveSelf   = errors.New("cannot remove yourself, withdraw instead")
	ErrInvalidGroupName   = errors.New("group name must be 1-64 characters")
	ErrAlreadyGroupMember = errors.New("user is already a member of this group")
)

type GroupService struct {
	db DBConn
}

func NewGroupService(db DBConn) *GroupService {
	return &GroupService{db: db}
}

type groupRecord struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// lockGroup takes the group row lock that serializes every membership change.
func lockGroup(ctx context.Context, q Querier, groupID uuid.UUID) (*groupRecord, error) {
	g := &groupRecord{}
	err := q.QueryRow(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = $1 FOR UPDATE",
		groupID,
	).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking group: %w", err)
	}
	return g, nil
}

func loadRoster(ctx context.Context, q Querier, groupID uuid.UUID) (models.Roster, error) {
	rows, err := q.Query(ctx,
		`SELECT gm.group_id, gm.user_id, u.username, gm.role, gm.joined_at
		 FROM group_members gm
		 JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = $1
		 ORDER BY gm.joined_at, gm.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	defer rows.Close()

	roster := models.Roster{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		roster = append(roster, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roster: %w", err)
	}
	return roster, nil
}

// memberRole reports userID's role in groupID without locking.
func memberRole(ctx context.Context, q Querier, groupID, userID uuid.UUID) (models.GroupRole, error) {
	var id uuid.UUID
	var role *string
	err := q.QueryRow(ctx,
		`SELECT g.id, gm.role
		 FROM groups g
		 LEFT JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = $2
		 WHERE g.id = $1`,
		groupID, userID,
	).Scan(&id, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrGroupNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting member role: %w", err)
	}
	if role == nil {
		return "", ErrNotGroupMember
	}
	return models.GroupRole(*role), nil
}

func setRole(ctx context.Context, q Querier, groupID, userID uuid.UUID, role models.GroupRole) error {
	_, err := q.Exec(ctx,
		"UPDATE group_members SET role = $3 WHERE group_id = $1 AND user_id = $2",
		groupID, userID, role,
	)
	if err != nil {
		return fmt.Errorf("setting role %s: %w", role, err)
	}
	return nil
}

func normalizeMembers(ownerID uuid.UUID, memberIDs []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{ownerID: true}
	out := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Create makes ownerID the monitor of a new group whose other members are
// memberIDs. The owner is always a member.
func (s *GroupService) Create(ctx context.Context, ownerID uuid.UUID, name string, memberIDs []uuid.UUID) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > models.MaxGroupNameLength {
		return nil, ErrInvalidGroupName
	}
	others := normalizeMembers(ownerID, memberIDs)

	var group *models.Group
	err := withTx(ctx, s.db, func(tx Tx) error {
		found, err := collectIDs(ctx, tx, "SELECT id FROM users WHERE id = ANY($1)", append([]uuid.UUID{ownerID}, others...))
		if err != nil {
			return fmt.Errorf("checking members: %w", err)
		}
		if len(found) != len(others)+1 {
			return ErrUserNotFound
		}

		g := &groupRecord{Name: name}
		err = tx.QueryRow(ctx,
			"INSERT INTO groups (name) VALUES ($1) RETURNING id, created_at",
			name,
		).Scan(&g.ID, &g.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating group: %w", err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, 'monitor')",
			g.ID, ownerID,
		)
		if err != nil {
			return fmt.Errorf("adding monitor: %w", err)
		}

		if len(others) > 0 {
			_, err = tx.Exec(ctx,
				`INSERT INTO group_members (group_id, user_id, role)
				 SELECT $1, t.member, 'member'
				 FROM unnest($2::uuid[]) WITH ORDINALITY AS t(member, ord)
				 ORDER BY t.ord`,
				g.ID, others,
			)
			if err != nil {
				return fmt.Errorf("adding members: %w", err)
			}
		}

		roster, err := loadRoster(ctx, tx, g.ID)
		if err != nil {
			return err
		}
		group = roster.Group(g.ID, g.Name, g.CreatedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// lockedRoster locks the group and returns it with its roster and the
// actor's membership.
func lockedRoster(ctx context.Context, q Querier, groupID, actorID uuid.UUID) (*groupRecord, models.Roster, models.GroupMember, error) {
	g, err := lockGroup(ctx, q, groupID)
	if err != nil {
		return nil, nil, models.GroupMember{}, err
	}
	roster, err := loadRoster(ctx, q, groupID)
	if err != nil {
		return nil, nil, models.GroupMember{}, err
	}
	actor, ok := roster.Find(actorID)
	if !ok {
		return nil, nil, models.GroupMember{}, ErrNotGroupMember
	}
	return g, roster, actor, nil
}

func (s *GroupService) TransferMonitor(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
	var group *models.Group
	err := withTx(ctx, s.db, func(tx Tx) error {
		g, roster, actor, err := lockedRoster(ctx, tx, groupID, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleMonitor {
			return ErrNotGroupMonitor
		}
		target, ok := roster.Find(targetID)
		if !ok {
			return ErrTargetNotMember
		}
		if target.Role == models.RoleMonitor {
			return ErrAlreadyMonitor
		}

		// Demote first: the schema allows one monitor row per group.
		if err := setRole(ctx, tx, groupID, actorID, models.RoleMember); err != nil {
			return err
		}
		if err := setRole(ctx, tx, groupID, targetID, models.RoleMonitor); err != nil {
			return err
		}

		for i := range roster {
			switch roster[i].UserID {
			case actorID:
				roster[i].Role = models.RoleMember
			case targetID:
				roster[i].Role = models.RoleMonitor
			}
		}
		group = roster.Group(g.ID, g.Name, g.CreatedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) AssignManager(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
	var group *models.Group
	err := withTx(ctx, s.db, func(tx Tx) error {
		g, roster, actor, err := lockedRoster(ctx, tx, groupID, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleMonitor {
			return ErrNotGroupMonitor
		}
		target, ok := roster.Find(targetID)
		if !ok {
			return ErrTargetNotMember
		}
		switch target.Role {
		case models.RoleMonitor:
			return ErrAlreadyMonitor
		case models.RoleManager:
			return ErrAlreadyManager
		}

		if err := setRole(ctx, tx, groupID, targetID, models.RoleManager); err != nil {
			return err
		}
		for i := range roster {
			if roster[i].UserID == targetID {
				roster[i].Role = models.RoleManager
			}
		}
		group = roster.Group(g.ID, g.Name, g.CreatedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// RemoveMember lets the monitor remove anyone else and a manager remove
// ordinary members. The membership row carries the role, so a removed
// manager loses the role in the same statement.
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, targetID uuid.UUID) (*models.Group, error) {
	if actorID == targetID {
		return nil, ErrCannotRemoveSelf
	}

	var group *models.Group
	err := withTx(ctx, s.db, func(tx Tx) error {
		g, roster, actor, err := lockedRoster(ctx, tx, groupID, actorID)
		if err != nil {
			return err
		}
		if actor.Role == models.RoleMember {
			return ErrPermissionDenied
		}
		target, ok := roster.Find(targetID)
		if !ok {
			return ErrTargetNotMember
		}
		if actor.Role == models.RoleManager && target.Role != models.RoleMember {
			return ErrPermissionDenied
		}

		_, err = tx.Exec(ctx,
			"DELETE FROM group_members WHERE group_id = $1 AND user_id = $2",
			groupID, targetID,
		)
		if err != nil {
			return fmt.Errorf("removing member: %w", err)
		}

		remaining := make(models.Roster, 0, len(roster)-1)
		for _, m := range roster {
			if m.UserID != targetID {
				remaining = append(remaining, m)
			}
		}
		group = remaining.Group(g.ID, g.Name, g.CreatedAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) Withdraw(ctx context.Context, userID, groupID uuid.UUID) (*models.WithdrawResult, error) {
	var result *models.WithdrawResult
	err := withTx(ctx, s.db, func(tx Tx) error {
		var err error
		result, err = withdrawTx(ctx, tx, userID, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withdrawTx removes userID from groupID inside an open transaction. A
// departing monitor hands over to the first manager by join order, else the
// first member; the last member leaving deletes the group.
func withdrawTx(ctx context.Context, q Querier, userID, groupID uuid.UUID) (*models.WithdrawResult, error) {
	_, roster, leaving, err := lockedRoster(ctx, q, groupID, userID)
	if err != nil {
		return nil, err
	}

	result := &models.WithdrawResult{GroupID: groupID}
	successor, hasSuccessor := roster.Successor(userID)
	if !hasSuccessor {
		if err := deleteGroupTx(ctx, q, groupID); err != nil {
			return nil, err
		}
		result.GroupDeleted = true
		return result, nil
	}

	_, err = q.Exec(ctx,
		"DELETE FROM group_members WHERE group_id = $1 AND user_id = $2",
		groupID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("removing member: %w", err)
	}

	if leaving.Role == models.RoleMonitor {
		if err := setRole(ctx, q, groupID, successor.UserID, models.RoleMonitor); err != nil {
			return nil, err
		}
		id := successor.UserID
		result.NewMonitorID = &id
	}
	return result, nil
}

// deleteGroupTx removes a group and everything scoped to it. Announcements
// still attached to another group survive.
func deleteGroupTx(ctx context.Context, q Querier, groupID uuid.UUID) error {
	announcementIDs, err := collectIDs(ctx, q,
		"SELECT announcement_id FROM group_announcements WHERE group_id = $1", groupID)
	if err != nil {
		return fmt.Errorf("listing announcements: %w", err)
	}

	steps := []struct {
		what string
		sql  string
		args []any
	}{
		{"invitations", "DELETE FROM invitations WHERE group_id = $1", []any{groupID}},
		{"announcement links", "DELETE FROM group_announcements WHERE group_id = $1", []any{groupID}},
		{"announcements", `DELETE FROM announcements a
			WHERE a.id = ANY($1)
			  AND NOT EXISTS (SELECT 1 FROM group_announcements ga WHERE ga.announcement_id = a.id)`,
			[]any{announcementIDs}},
		{"members", "DELETE FROM group_members WHERE group_id = $1", []any{groupID}},
		{"group", "DELETE FROM groups WHERE id = $1", []any{groupID}},
	}
	for _, step := range steps {
		if _, err := q.Exec(ctx, step.sql, step.args...); err != nil {
			return fmt.Errorf("deleting group %s: %w", step.what, err)
		}
	}
	return nil
}

func (s *GroupService) List(ctx context.Context, userID uuid.UUID) ([]models.GroupSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT g.id, g.name, me.role,
		        (SELECT COUNT(*) FROM group_members c WHERE c.group_id = g.id),
		        g.created_at
		 FROM group_members me
		 JOIN groups g ON g.id = me.group_id
		 WHERE me.user_id = $1
		 ORDER BY g.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []models.GroupSummary{}
	for rows.Next() {
		var g models.GroupSummary
		if err := rows.Scan(&g.ID, &g.Name, &g.Role, &g.MemberCount, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating groups: %w", err)
	}
	return groups, nil
}

// Get returns the group with its roster. Only members may look.
func (s *GroupService) Get(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupDetail, error) {
	g := &groupRecord{}
	err := s.db.QueryRow(ctx,
		"SELECT id, name, created_at FROM groups WHERE id = $1",
		groupID,
	).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting group: %w", err)
	}

	roster, err := loadRoster(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if _, ok := roster.Find(userID); !ok {
		return nil, ErrNotGroupMember
	}

	return &models.GroupDetail{
		Group:  *roster.Group(g.ID, g.Name, g.CreatedAt),
		Roster: roster,
	}, nil
}
