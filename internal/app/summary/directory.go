package summary

import (
	"context"

	"github.com/cfpulse/cfpulse/internal/domain/summary"
)

var _ summary.UserDirectory = (*StaticDirectory)(nil)

// StaticDirectory serves a fixed user list, typically loaded from
// configuration. A database-backed directory can replace it behind the same
// port once user management lands.
type StaticDirectory struct {
	users []summary.User
}

// NewStaticDirectory creates a directory over a fixed user list.
func NewStaticDirectory(users []summary.User) *StaticDirectory {
	return &StaticDirectory{users: users}
}

// ListActiveUsers returns a copy of the configured user list.
func (d *StaticDirectory) ListActiveUsers(ctx context.Context) ([]summary.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]summary.User, len(d.users))
	copy(out, d.users)
	return out, nil
}
