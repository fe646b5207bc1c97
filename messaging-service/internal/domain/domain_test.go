package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dept(id int64) *int64 { return &id }

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleStaff, ParseRole("staff"))
	assert.Equal(t, RoleManager, ParseRole(" Manager "))
	assert.Equal(t, RoleDirector, ParseRole("DIRECTOR"))
	assert.Equal(t, RoleUnknown, ParseRole("intern"))
	assert.Equal(t, RoleUnknown, ParseRole(""))
	assert.False(t, RoleUnknown.Valid())
	assert.Equal(t, "Unknown", RoleUnknown.String())
}

func TestCanConverseWith(t *testing.T) {
	d5, d7 := dept(5), dept(7)

	tests := []struct {
		name       string
		actor      Role
		actorDept  *int64
		target     Role
		targetDept *int64
		want       bool
	}{
		{"staff to staff same dept", RoleStaff, d5, RoleStaff, dept(5), true},
		{"staff to staff other dept", RoleStaff, d5, RoleStaff, d7, false},
		{"staff to manager same dept", RoleStaff, d5, RoleManager, d5, true},
		{"staff to manager other dept", RoleStaff, d7, RoleManager, d5, false},
		{"staff to director", RoleStaff, d5, RoleDirector, d5, false},
		{"staff without dept", RoleStaff, nil, RoleStaff, nil, false},
		{"manager to staff same dept", RoleManager, d5, RoleStaff, d5, true},
		{"manager to staff other dept", RoleManager, d5, RoleStaff, d7, false},
		{"manager to manager other dept", RoleManager, d5, RoleManager, d7, true},
		{"manager to director", RoleManager, d5, RoleDirector, nil, true},
		{"director to staff", RoleDirector, nil, RoleStaff, d7, true},
		{"director to manager", RoleDirector, d5, RoleManager, d7, true},
		{"director to director", RoleDirector, nil, RoleDirector, nil, true},
		{"unknown actor", RoleUnknown, d5, RoleStaff, d5, false},
		{"director to unknown role", RoleDirector, d5, RoleUnknown, nil, true},
		{"manager to unknown role", RoleManager, d5, RoleUnknown, d5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanConverseWith(tt.actor, tt.actorDept, tt.target, tt.targetDept))
		})
	}
}

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, DirectKey("b", "a"), DirectKey("a", "b"))
	assert.Equal(t, "1:a:b", DirectKey("b", "a"))
	assert.NotEqual(t, DirectKey("a:b", "c"), DirectKey("a", "b:c"))
}

func TestGroups(t *testing.T) {
	scope, id, ok := SplitGroup(ConversationGroup("c1"))
	assert.True(t, ok)
	assert.Equal(t, GroupScopeConversation, scope)
	assert.Equal(t, "c1", id)

	_, _, ok = SplitGroup("nogroup")
	assert.False(t, ok)
	assert.Equal(t, "department:5", DepartmentGroup("5"))
	assert.Equal(t, "user:u1", UserGroup("u1"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
}
