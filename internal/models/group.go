package models

import (
	"time"

	"github.com/google/uuid"
)

type GroupRole string

const (
	RoleMonitor GroupRole = "monitor"
	RoleManager GroupRole = "manager"
	RoleMember  GroupRole = "member"
)

const MaxGroupNameLength = 64

type Group struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	MonitorID  *uuid.UUID  `json:"monitor"`
	ManagerIDs []uuid.UUID `json:"managers"`
	MemberIDs  []uuid.UUID `json:"members"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// GroupSummary is a group as seen from one member's list.
type GroupSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Role        GroupRole `json:"role"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type GroupMember struct {
	GroupID  uuid.UUID `json:"groupId"`
	UserID   uuid.UUID `json:"userid"`
	Username string    `json:"username"`
	Role     GroupRole `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Roster is a group's membership ordered by join time.
type Roster []GroupMember

func (r Roster) Find(userID uuid.UUID) (GroupMember, bool) {
	for _, m := range r {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}

func (r Roster) Monitor() (GroupMember, bool) {
	for _, m := range r {
		if m.Role == RoleMonitor {
			return m, true
		}
	}
	return GroupMember{}, false
}

// Successor picks who takes over as monitor when leaving departs: the
// earliest-joined manager, else the earliest-joined member. ok is false when
// nobody else remains.
func (r Roster) Successor(leaving uuid.UUID) (GroupMember, bool) {
	var fallback *GroupMember
	for i := range r {
		m := r[i]
		if m.UserID == leaving {
			continue
		}
		if m.Role == RoleManager {
			return m, true
		}
		if fallback == nil {
			fallback = &r[i]
		}
	}
	if fallback == nil {
		return GroupMember{}, false
	}
	return *fallback, true
}

// Group folds the roster into the group view.
func (r Roster) Group(id uuid.UUID, name string, createdAt time.Time) *Group {
	g := &Group{
		ID:         id,
		Name:       name,
		ManagerIDs: []uuid.UUID{},
		MemberIDs:  make([]uuid.UUID, 0, len(r)),
		CreatedAt:  createdAt,
	}
	for _, m := range r {
		g.MemberIDs = append(g.MemberIDs, m.UserID)
		switch m.Role {
		case RoleMonitor:
			id := m.UserID
			g.MonitorID = &id
		case RoleManager:
			g.ManagerIDs = append(g.ManagerIDs, m.UserID)
		}
	}
	return g
}

type Announcement struct {
	ID        uuid.UUID  `json:"id"`
	GroupID   uuid.UUID  `json:"groupId"`
	AuthorID  *uuid.UUID `json:"author"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
}

const MaxAnnouncementLength = 1000

type Invitation struct {
	ID         uuid.UUID `json:"id"`
	GroupID    uuid.UUID `json:"groupId"`
	GroupName  string    `json:"groupName,omitempty"`
	SenderID   uuid.UUID `json:"senderId"`
	ReceiverID uuid.UUID `json:"receiverId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type GroupDetail struct {
	Group
	Roster []GroupMember `json:"roster"`
}

// WithdrawResult describes what happened to the group when a member left.
type WithdrawResult struct {
	GroupID      uuid.UUID  `json:"groupId"`
	GroupDeleted bool       `json:"groupDeleted"`
	NewMonitorID *uuid.UUID `json:"newMonitor,omitempty"`
}
