package core

import (
	"errors"
	"time"
)

// Role is the fixed role of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// RootUsername is the distinguished administrator identity created by BootstrapAdmin.
const RootUsername = "ADMIN"

// Account is the persisted account record.
// An empty PasswordHash means the credential is unset.
type Account struct {
	ID             int64
	Username       string
	PasswordHash   string
	Role           Role
	Locked         bool
	PolicyEnforced bool
	FailedAttempts int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasCredential reports whether a real password has been set.
func (a Account) HasCredential() bool {
	return a.PasswordHash != ""
}

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SessionUser is what an authenticated session carries. The boundary layer
// stores it; the core only produces it.
type SessionUser struct {
	ID                 int64
	Username           string
	Role               Role
	PolicyEnforced     bool
	MustChangePassword bool
}

func newSessionUser(a *Account) SessionUser {
	return SessionUser{
		ID:                 a.ID,
		Username:           a.Username,
		Role:               a.Role,
		PolicyEnforced:     a.PolicyEnforced,
		MustChangePassword: !a.HasCredential(),
	}
}

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrAccountLocked          = errors.New("account locked")
	ErrBadPassword            = errors.New("bad password")
	ErrTerminated             = errors.New("terminated after three consecutive failed attempts")
	ErrWrongOldPassword       = errors.New("wrong old password")
	ErrOldPasswordMustBeEmpty = errors.New("old password must be empty")
	ErrPasswordMismatch       = errors.New("new password and confirmation do not match")
	ErrPolicyViolation        = errors.New("password does not satisfy policy")
	ErrForbiddenOnRoot        = errors.New("operation forbidden on root account")
	ErrDuplicateUsername      = errors.New("username already exists")
	ErrStorageUnavailable     = errors.New("storage unavailable")

	ErrInvalidUsername = errors.New("username is empty")
	ErrPasswordTooLong = errors.New("password too long")
)

// failureMessages holds the user-facing text for every failure reason.
var failureMessages = []struct {
	err error
	msg string
}{
	{ErrUserNotFound, "Пользователь не найден"},
	{ErrAccountLocked, "Вы были заблокированы"},
	{ErrBadPassword, "Неверный пароль"},
	{ErrTerminated, "Три неверных попытки ввода пароля. Работа завершена."},
	{ErrWrongOldPassword, "Неверный старый пароль"},
	{ErrOldPasswordMustBeEmpty, "Старый пароль должен быть пустым"},
	{ErrPasswordMismatch, "Пароли не совпадают"},
	{ErrPolicyViolation, "Пароль не соответствует требованиям политики"},
	{ErrForbiddenOnRoot, "Операция запрещена для ADMIN"},
	{ErrDuplicateUsername, "Не удалось добавить пользователя: имя неуникально"},
	{ErrStorageUnavailable, "Хранилище недоступно, повторите попытку позже"},
	{ErrInvalidUsername, "Имя пользователя не может быть пустым"},
	{ErrPasswordTooLong, "Пароль слишком длинный"},
}

// FailureMessage returns the human-readable message for a failure reason.
func FailureMessage(err error) string {
	for _, m := range failureMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Внутренняя ошибка сервера"
}
