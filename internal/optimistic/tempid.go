package optimistic

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TempPrefix marks client-local placeholder ids.
const TempPrefix = "temp-"

// NewTempID returns a placeholder id for an entity the server has not
// confirmed yet.
func NewTempID(now time.Time) string {
	return fmt.Sprintf("%s%d-%s", TempPrefix, now.UnixMilli(), uuid.NewString()[:8])
}

// IsTemp reports whether id is a placeholder.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// aliases maps confirmed placeholders to their server ids.
type aliases struct {
	mu sync.RWMutex
	m  map[string]string
}

func newAliases() *aliases {
	return &aliases{m: make(map[string]string)}
}

func (a *aliases) set(tempID, serverID string) {
	a.mu.Lock()
	a.m[tempID] = serverID
	a.mu.Unlock()
}

// resolve maps id to its server id. Placeholders without a confirmed server id
// fail with ErrUnconfirmedID.
func (a *aliases) resolve(id string) (string, error) {
	if !IsTemp(id) {
		return id, nil
	}
	a.mu.RLock()
	serverID, ok := a.m[id]
	a.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnconfirmedID, id)
	}
	return serverID, nil
}

func (a *aliases) resolvePtr(id *string) (*string, error) {
	if id == nil {
		return nil, nil
	}
	resolved, err := a.resolve(*id)
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}
