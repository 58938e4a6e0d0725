package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/pbkdf2"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/models"
	"cyberguard/pkg/logger"
)

// pbkdf2Iterations balances login latency against brute-force cost
const pbkdf2Iterations = 100000

var (
	// ErrUserExists is returned when registering a duplicate email
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound is returned for unknown or expired tokens
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Store is the SQLite-backed user and session store
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewStore opens the SQLite database and initializes the schema
func NewStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	log = log.WithComponent("database")

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", cfg.Path).Msg("database initialized")
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		fullname TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_login TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT UNIQUE NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users (id)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions (token);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	s.logger.Info().Msg("closing database")
	return s.db.Close()
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// hashPassword derives a PBKDF2-SHA256 key from the password and salt
func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}

func newSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// CreateUser registers a new user with a salted password hash
func (s *Store) CreateUser(ctx context.Context, email, fullname, password string) (*models.User, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	var existing int64
	err = s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&existing)
	if err == nil {
		s.logger.Warn().Str("email", email).Msg("attempted to create duplicate user")
		return nil, ErrUserExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, fullname, password_hash, salt) VALUES (?, ?, ?, ?)",
		email, fullname, hashPassword(password, salt), salt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", email).Msg("user created")
	return &models.User{ID: id, Email: email, FullName: fullname, CreatedAt: time.Now()}, nil
}

// VerifyUser checks login credentials and updates the last-login timestamp
func (s *Store) VerifyUser(ctx context.Context, email, password string) (*models.User, error) {
	var (
		user       models.User
		storedHash string
		salt       string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, fullname, password_hash, salt FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Email, &user.FullName, &storedHash, &salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	inputHash := hashPassword(password, salt)
	if subtle.ConstantTimeCompare([]byte(inputHash), []byte(storedHash)) != 1 {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?", user.ID); err != nil {
		s.logger.Warn().Err(err).Msg("failed to update last login")
	}

	return &user, nil
}

// CreateSession issues a new session token for a user
func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error) {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	expiresAt := time.Now().Add(ttl)

	var email, fullname string
	err = s.db.QueryRowContext(ctx, "SELECT email, fullname FROM users WHERE id = ?", userID).
		Scan(&email, &fullname)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, token, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Session{
		ID:        id,
		UserID:    userID,
		Email:     email,
		FullName:  fullname,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifySession validates a token and returns the session with user info.
// Expired sessions are deleted on sight.
func (s *Store) VerifySession(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.expires_at, u.email, u.fullname
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ?`, token).
		Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.Email, &sess.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	if sess.ExpiresAt.Before(time.Now()) {
		if err := s.DeleteSession(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete expired session")
		}
		return nil, ErrSessionNotFound
	}

	sess.Token = token
	return &sess, nil
}

// DeleteSession invalidates a session token
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanupExpiredSessions removes expired sessions, returning the count removed
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
