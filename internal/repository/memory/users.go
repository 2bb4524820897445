package memory

import (
	"context"
	"strings"
	"sync"
)

// UserDirectory implements ingest.UserResolver over a fixed address book.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]string
}

// NewUserDirectory creates a directory from email -> user ID pairs.
func NewUserDirectory(users map[string]string) *UserDirectory {
	d := &UserDirectory{users: make(map[string]string, len(users))}
	for email, id := range users {
		d.users[strings.ToLower(email)] = id
	}
	return d
}

func (d *UserDirectory) ResolveUserID(_ context.Context, email string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[strings.ToLower(email)], nil
}
