package core

// Destination is where a session should go next.
type Destination string

const (
	DestLogin               Destination = "/login"
	DestAdminHome           Destination = "/admin"
	DestUserHome            Destination = "/user"
	DestAdminChangePassword Destination = "/admin/change-password"
	DestUserChangePassword  Destination = "/user/change-password"
)

// Area is a part of the portal guarded by role.
type Area int

const (
	AreaAdmin Area = iota
	AreaUser
)

// HomeFor returns the role's home area.
func HomeFor(role Role) Destination {
	if role == RoleAdmin {
		return DestAdminHome
	}
	return DestUserHome
}

// ChangePasswordFor returns the role's change-password endpoint.
func ChangePasswordFor(role Role) Destination {
	if role == RoleAdmin {
		return DestAdminChangePassword
	}
	return DestUserChangePassword
}

// NextDestination is the landing point of a freshly authenticated session:
// the forced change endpoint while the credential is unset, otherwise home.
func NextDestination(u SessionUser) Destination {
	if u.MustChangePassword {
		return ChangePasswordFor(u.Role)
	}
	return HomeFor(u.Role)
}

// Authorize decides whether u may enter area. When it may not, the returned
// destination is where the caller should be sent instead. changingPassword
// is true when the request targets the area's change-password endpoint.
func Authorize(u *SessionUser, area Area, changingPassword bool) (bool, Destination) {
	if u == nil {
		return false, DestLogin
	}
	switch area {
	case AreaAdmin:
		if u.Role != RoleAdmin {
			return false, DestLogin
		}
	case AreaUser:
		if u.Role == RoleAdmin {
			return false, DestAdminHome
		}
	default:
		return false, DestLogin
	}
	if u.MustChangePassword && !changingPassword {
		return false, ChangePasswordFor(u.Role)
	}
	return true, ""
}
