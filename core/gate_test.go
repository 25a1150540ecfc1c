package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	admin := &SessionUser{ID: 1, Username: RootUsername, Role: RoleAdmin}
	user := &SessionUser{ID: 2, Username: "bob", Role: RoleUser}
	fresh := &SessionUser{ID: 3, Username: "alice", Role: RoleUser, MustChangePassword: true}
	freshAdmin := &SessionUser{ID: 1, Username: RootUsername, Role: RoleAdmin, MustChangePassword: true}

	cases := []struct {
		name     string
		user     *SessionUser
		area     Area
		changing bool
		ok       bool
		dest     Destination
	}{
		{"anonymous admin area", nil, AreaAdmin, false, false, DestLogin},
		{"anonymous user area", nil, AreaUser, false, false, DestLogin},
		{"admin in admin area", admin, AreaAdmin, false, true, ""},
		{"admin in user area", admin, AreaUser, false, false, DestAdminHome},
		{"user in admin area", user, AreaAdmin, false, false, DestLogin},
		{"user in user area", user, AreaUser, false, true, ""},
		{"forced change pinned", fresh, AreaUser, false, false, DestUserChangePassword},
		{"forced change allowed", fresh, AreaUser, true, true, ""},
		{"forced admin change pinned", freshAdmin, AreaAdmin, false, false, DestAdminChangePassword},
		{"forced admin change allowed", freshAdmin, AreaAdmin, true, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, dest := Authorize(tc.user, tc.area, tc.changing)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.dest, dest)
		})
	}
}

func TestNextDestination(t *testing.T) {
	assert.Equal(t, DestAdminHome, NextDestination(SessionUser{Role: RoleAdmin}))
	assert.Equal(t, DestUserHome, NextDestination(SessionUser{Role: RoleUser}))
	assert.Equal(t, DestAdminChangePassword, NextDestination(SessionUser{Role: RoleAdmin, MustChangePassword: true}))
	assert.Equal(t, DestUserChangePassword, NextDestination(SessionUser{Role: RoleUser, MustChangePassword: true}))
}

func TestFailureMessagesDistinct(t *testing.T) {
	seen := map[string]error{}
	for _, m := range failureMessages {
		msg := FailureMessage(m.err)
		assert.Equal(t, m.msg, msg)
		if prev, dup := seen[msg]; dup {
			t.Fatalf("%v and %v share message %q", prev, m.err, msg)
		}
		seen[msg] = m.err
	}
	assert.NotEqual(t, FailureMessage(ErrBadPassword), FailureMessage(ErrTerminated))
}
