package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/trade-compass/compass-go/internal/types"
)

// ErrNoSession is returned when there is no saved session to load
var ErrNoSession = errors.New("no saved session")

// Store persists the session cookies of one API base URL to disk
type Store struct {
	logger types.Logger
}

// File is the on-disk session format
type File struct {
	BaseURL string    `json:"baseUrl"`
	SavedAt time.Time `json:"savedAt"`
	Cookies []Cookie  `json:"cookies"`
}

// Cookie is a saved name/value pair
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewStore creates a new session store
func NewStore(logger types.Logger) *Store {
	return &Store{logger: logger}
}

// Save writes the cookies the jar holds for u to path
func (s *Store) Save(path string, jar http.CookieJar, u *url.URL) error {
	if jar == nil {
		return errors.New("no cookie jar")
	}

	file := File{
		BaseURL: u.String(),
		SavedAt: time.Now().UTC(),
	}
	for _, c := range jar.Cookies(u) {
		file.Cookies = append(file.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}

	if s.logger != nil {
		s.logger.Info("Session saved", "path", path, "cookies", len(file.Cookies))
	}

	return nil
}

// Load restores cookies saved for u from path into the jar
func (s *Store) Load(path string, jar http.CookieJar, u *url.URL) error {
	if jar == nil {
		return errors.New("no cookie jar")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoSession
		}
		return errors.Wrap(err, "failed to read session file")
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "failed to unmarshal session")
	}

	if file.BaseURL != "" && file.BaseURL != u.String() {
		return errors.Errorf("session file belongs to %s", file.BaseURL)
	}

	cookies := make([]*http.Cookie, 0, len(file.Cookies))
	for _, c := range file.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(u, cookies)

	if s.logger != nil {
		s.logger.Info("Session loaded", "path", path, "cookies", len(cookies))
	}

	return nil
}

// Lookup returns the value of the named cookie the jar holds for u
func Lookup(jar http.CookieJar, u *url.URL, name string) (string, bool) {
	if jar == nil {
		return "", false
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}
