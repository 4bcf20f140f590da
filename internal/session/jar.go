// Package session keeps the transport-level session credential (cookies) across process
// runs. The stored cookies are never interpreted; they are replayed into a standard
// cookie jar exactly as the server set them.
package session

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Jar is an http.CookieJar backed by an in-memory jar and a sqlite table.
type Jar struct {
	db     *sql.DB
	mem    *cookiejar.Jar
	logger *logrus.Logger
	mu     sync.Mutex
}

var _ http.CookieJar = (*Jar)(nil)

// Open opens (or creates) the cookie database at path and loads unexpired cookies.
func Open(path string, logger *logrus.Logger) (*Jar, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	mem, err := cookiejar.New(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	j := &Jar{db: db, mem: mem, logger: logger}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	if err := j.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading cookies: %w", err)
	}
	return j, nil
}

func (j *Jar) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cookies (
			scheme TEXT NOT NULL,
			host TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			expires TIMESTAMP,
			secure INTEGER NOT NULL DEFAULT 0,
			http_only INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (host, name, path)
		);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (j *Jar) load() error {
	rows, err := j.db.Query("SELECT scheme, host, name, value, path, domain, expires, secure, http_only FROM cookies")
	if err != nil {
		return fmt.Errorf("querying cookies: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var (
			scheme, host string
			expires      sql.NullTime
			c            http.Cookie
		)
		if err := rows.Scan(&scheme, &host, &c.Name, &c.Value, &c.Path, &c.Domain, &expires, &c.Secure, &c.HttpOnly); err != nil {
			return fmt.Errorf("scanning cookie: %w", err)
		}
		if expires.Valid {
			if !expires.Time.After(now) {
				continue
			}
			c.Expires = expires.Time
		}
		j.mem.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: "/"}, []*http.Cookie{&c})
	}
	return rows.Err()
}

// SetCookies records cookies in memory and persists them. Cookies the server expires are
// removed from storage.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.mem.SetCookies(u, cookies)

	now := time.Now()
	for _, c := range cookies {
		// Stored cookies are replayed against "/", so the path must be explicit.
		stored := *c
		if stored.Path == "" || stored.Path[0] != '/' {
			stored.Path = defaultPath(u.Path)
		}

		var err error
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			_, err = j.db.Exec("DELETE FROM cookies WHERE host = ? AND name = ? AND path = ?", u.Host, stored.Name, stored.Path)
		} else {
			err = j.save(u, &stored, now)
		}
		if err != nil {
			j.logger.WithError(err).WithField("cookie", c.Name).Warn("persisting session cookie")
		}
	}
}

// defaultPath is the RFC 6265 section 5.1.4 default-path of a request path.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func (j *Jar) save(u *url.URL, c *http.Cookie, now time.Time) error {
	var expires sql.NullTime
	switch {
	case c.MaxAge > 0:
		expires = sql.NullTime{Time: now.Add(time.Duration(c.MaxAge) * time.Second).UTC(), Valid: true}
	case !c.Expires.IsZero():
		expires = sql.NullTime{Time: c.Expires.UTC(), Valid: true}
	}

	_, err := j.db.Exec(`
		INSERT INTO cookies (scheme, host, name, value, path, domain, expires, secure, http_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (host, name, path) DO UPDATE SET
			scheme = excluded.scheme,
			value = excluded.value,
			domain = excluded.domain,
			expires = excluded.expires,
			secure = excluded.secure,
			http_only = excluded.http_only`,
		u.Scheme, u.Host, c.Name, c.Value, c.Path, c.Domain, expires, c.Secure, c.HttpOnly,
	)
	if err != nil {
		return fmt.Errorf("saving cookie: %w", err)
	}
	return nil
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.mem.Cookies(u)
}

// Clear forgets every stored cookie, in memory and on disk.
func (j *Jar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	mem, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("creating cookie jar: %w", err)
	}
	if _, err := j.db.Exec("DELETE FROM cookies"); err != nil {
		return fmt.Errorf("deleting cookies: %w", err)
	}
	j.mem = mem
	return nil
}

func (j *Jar) Close() error {
	return j.db.Close()
}
