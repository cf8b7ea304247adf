package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Authorization records which accounts the user approved for this client.
// It outlives the process, the way a browser wallet remembers a site.
type Authorization struct {
	Accounts []common.Address `json:"accounts"`
}

// AuthStore persists the authorization.
type AuthStore interface {
	Load() (Authorization, error)
	Save(Authorization) error
}

// DefaultAuthPath returns the per-user authorization file.
//
//	macOS:   ~/Library/Caches/copytrader/session.json
//	Linux:   ~/.cache/copytrader/session.json
//	Windows: %LocalAppData%\copytrader\session.json
func DefaultAuthPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, keychainService, "session.json")
}

// FileAuthStore keeps the authorization in a 0600 JSON file.
type FileAuthStore struct {
	path string
}

// NewFileAuthStore creates a file-backed AuthStore.
func NewFileAuthStore(path string) *FileAuthStore {
	return &FileAuthStore{path: path}
}

// Load returns an empty Authorization when the file is missing or corrupt.
func (s *FileAuthStore) Load() (Authorization, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Authorization{}, nil
	}
	if err != nil {
		return Authorization{}, err
	}
	var a Authorization
	if err := json.Unmarshal(data, &a); err != nil {
		return Authorization{}, nil
	}
	return a, nil
}

func (s *FileAuthStore) Save(a Authorization) error {
	if len(a.Accounts) == 0 {
		err := os.Remove(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}
	_ = os.Chmod(s.path, 0o600)
	return nil
}

// MemAuthStore keeps the authorization in memory.
type MemAuthStore struct {
	mu sync.Mutex
	a  Authorization
}

func (s *MemAuthStore) Load() (Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Authorization{Accounts: append([]common.Address(nil), s.a.Accounts...)}, nil
}

func (s *MemAuthStore) Save(a Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a = Authorization{Accounts: append([]common.Address(nil), a.Accounts...)}
	return nil
}
