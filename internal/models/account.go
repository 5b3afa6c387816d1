package models

import (
	"strings"
	"time"
)

type Account struct {
	ID           int32
	Username     string
	Email        string
	PasswordHash string
	Role         string
	RegisterTime time.Time
}

// Authorities returns the permission strings encoded into tokens for
// this account. Roles are stored as a single column and expanded here.
func (a *Account) Authorities() []string {
	if a.Role == "" {
		return []string{"ROLE_USER"}
	}
	return []string{"ROLE_" + strings.ToUpper(a.Role)}
}
