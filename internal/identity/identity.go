// Package identity provides email/password accounts and sessions over the
// local SQLite database. It is the identity provider the state store signs in
// against and listens to for session changes.
package identity

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

const (
	DefaultTTL        = 30 * 24 * time.Hour
	minPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("email is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// Provider holds the current session of this installation and notifies
// subscribers whenever it changes.
type Provider struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *model.Session
	subs    map[int]func(*model.Session)
	nextSub int
}

func New(db *sql.DB, ttl time.Duration, logger *slog.Logger) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		subs:   make(map[int]func(*model.Session)),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	var exists int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{ID: uuid.NewString(), Email: email, CreatedAt: p.now()}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, string(hash), user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	p.logger.Info("user registered", "user_id", user.ID)
	return p.startSession(ctx, user)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)

	var user model.User
	var hash string
	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Email, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p.startSession(ctx, user)
}

func (p *Provider) startSession(ctx context.Context, user model.User) (*model.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := p.now()
	sess := &model.Session{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(p.ttl),
		CreatedAt: now,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	p.set(sess)
	return copySession(sess), nil
}

// SignOut ends the current session. Without one it does nothing.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil {
		return nil
	}

	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, cur.Token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	p.set(nil)
	return nil
}

// Session returns the current session, or nil when signed out. A session that
// has expired or been revoked is dropped and subscribers are told.
func (p *Provider) Session(ctx context.Context) (*model.Session, error) {
	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil {
		return nil, nil
	}

	sess, err := p.lookup(ctx, cur.Token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		p.set(nil)
		return nil, nil
	}
	return sess, nil
}

// Resume makes a previously issued token the current session, as when a
// client reconnects. It returns nil if the token is unknown or expired.
func (p *Provider) Resume(ctx context.Context, token string) (*model.Session, error) {
	sess, err := p.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	p.set(sess)
	return copySession(sess), nil
}

func (p *Provider) lookup(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	err := p.db.QueryRowContext(ctx,
		`SELECT s.token, s.user_id, u.email, s.expires_at, s.created_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = ? AND s.expires_at > ?`,
		token, p.now(),
	).Scan(&s.Token, &s.UserID, &s.Email, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return &s, nil
}

// ExpireSessions deletes expired sessions and reports how many were removed.
// If the current session is among them, subscribers receive nil.
func (p *Provider) ExpireSessions(ctx context.Context) (int64, error) {
	now := p.now()
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	p.mu.Lock()
	expired := p.current != nil && p.current.Expired(now)
	p.mu.Unlock()
	if expired {
		p.logger.Info("session expired")
		p.set(nil)
	}
	return count, nil
}

// Subscribe registers fn for session changes. fn runs on the goroutine that
// caused the change and receives nil on sign-out or expiry.
func (p *Provider) Subscribe(fn func(*model.Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) set(sess *model.Session) {
	p.mu.Lock()
	p.current = sess
	subs := make([]func(*model.Session), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(copySession(sess))
	}
}

func copySession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure, as
// when two sign-ups for one email pass the existence check together.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
