package model

import "time"

// AccountType governs the limits applied to a user.
type AccountType string

const (
	AccountTypeFree    AccountType = "FREE"
	AccountTypePremium AccountType = "PREMIUM"
	AccountTypeAdmin   AccountType = "ADMIN"
)

// AccountLimits are the per account type quotas. Zero means unlimited.
type AccountLimits struct {
	MaxParallelSearches int
	MaxPoints           int64
}

var accountLimits = map[AccountType]AccountLimits{
	AccountTypeFree:    {MaxParallelSearches: 1, MaxPoints: 1_000},
	AccountTypePremium: {MaxParallelSearches: 5, MaxPoints: 100_000},
	AccountTypeAdmin:   {},
}

// Limits returns the quotas of the account type. Unknown types get the free tier.
func (t AccountType) Limits() AccountLimits {
	if l, ok := accountLimits[t]; ok {
		return l
	}
	return accountLimits[AccountTypeFree]
}

// User is a platform account.
type User struct {
	ID            int64       `json:"id" db:"id"`
	Email         string      `json:"email" db:"email"`
	PasswordHash  string      `json:"-" db:"password_hash"`
	AccountType   AccountType `json:"accountType" db:"account_type"`
	Points        int64       `json:"points" db:"points"`
	PendingPoints int64       `json:"pendingPoints" db:"pending_points"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}

// IsAdmin reports whether the user may use admin endpoints.
func (u *User) IsAdmin() bool {
	return u.AccountType == AccountTypeAdmin
}

// CanReceivePoints reports whether adding points keeps the user within the account limit.
func (u *User) CanReceivePoints(points int64) bool {
	max := u.AccountType.Limits().MaxPoints
	if max == 0 {
		return true
	}
	return u.Points+u.PendingPoints+points <= max
}

// RequestContext is the explicit per-request state handed to services.
type RequestContext struct {
	User      *User
	RequestID string
}

// UserID returns the id of the authenticated user.
func (rc RequestContext) UserID() int64 {
	if rc.User == nil {
		return 0
	}
	return rc.User.ID
}

// LoginRequest is the payload of the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
