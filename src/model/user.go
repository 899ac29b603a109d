package model

import (
	"database/sql"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID                            int64          `json:"id"`
	Email                         string         `json:"email"`
	Password                      string         `json:"-"` // never serialized
	AuthProvider                  string         `json:"auth_provider"`
	IsEmailVerified               bool           `json:"is_email_verified"`
	EmailVerificationToken        sql.NullString `json:"-"`
	EmailVerificationTokenExpires sql.NullTime   `json:"-"`
	PasswordResetToken            sql.NullString `json:"-"`
	PasswordResetTokenExpires     sql.NullTime   `json:"-"`
	CreatedAt                     time.Time      `json:"created_at"`
	UpdatedAt                     time.Time      `json:"updated_at"`
}

type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user into the database and sets its ID.
func (u *User) CreateUser(db *sql.DB) error {
	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	stmt, err := db.Prepare(`
	INSERT INTO users (email, password, auth_provider, is_email_verified, email_verification_token, email_verification_token_expires_at)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(u.Email, u.Password, u.AuthProvider, u.IsEmailVerified,
		u.EmailVerificationToken, u.EmailVerificationTokenExpires)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

const userColumns = `id, email, password, auth_provider, is_email_verified,
	email_verification_token, email_verification_token_expires_at,
	password_reset_token, password_reset_token_expires_at, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.AuthProvider, &u.IsEmailVerified,
		&u.EmailVerificationToken, &u.EmailVerificationTokenExpires,
		&u.PasswordResetToken, &u.PasswordResetTokenExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user from the database by their email.
func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByID retrieves a user from the database by their primary key.
func GetUserByID(db *sql.DB, id int64) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByVerificationToken looks up a user holding an unexpired email
// verification token.
func GetUserByVerificationToken(db *sql.DB, token string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users
		WHERE email_verification_token = ? AND email_verification_token_expires_at > ?`,
		token, time.Now()))
}

// GetUserByPasswordResetToken looks up a user holding an unexpired password
// reset token.
func GetUserByPasswordResetToken(db *sql.DB, token string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users
		WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`,
		token, time.Now()))
}

// MarkEmailVerified clears the verification token and flags the user.
func MarkEmailVerified(db *sql.DB, userID int64) error {
	_, err := db.Exec(`UPDATE users SET is_email_verified = TRUE,
		email_verification_token = NULL, email_verification_token_expires_at = NULL,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`, userID)
	return err
}

// SetPasswordResetToken stores a reset token with its expiry.
func SetPasswordResetToken(db *sql.DB, userID int64, token string, expiresAt time.Time) error {
	_, err := db.Exec(`UPDATE users SET password_reset_token = ?,
		password_reset_token_expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		token, expiresAt, userID)
	return err
}

// UpdatePassword replaces the stored hash and clears any reset token.
func UpdatePassword(db *sql.DB, userID int64, hashedPassword string) error {
	_, err := db.Exec(`UPDATE users SET password = ?,
		password_reset_token = NULL, password_reset_token_expires_at = NULL,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`, hashedPassword, userID)
	return err
}

// CreateSession inserts a session row for a freshly issued token pair.
func CreateSession(db *sql.DB, s *Session) error {
	stmt, err := db.Prepare(`
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(s.UserID, s.Token, s.RefreshToken, s.UserAgent, s.ClientIP, s.IsBlocked, s.ExpiresAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// GetSessionByToken retrieves a non-blocked session by its access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	var s Session
	err := db.QueryRow(`SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
		FROM sessions WHERE token = ? AND is_blocked = FALSE`, token).
		Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent, &s.ClientIP, &s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionByRefreshToken retrieves a non-blocked, unexpired session by its
// refresh token.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	var s Session
	err := db.QueryRow(`SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
		FROM sessions WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`, refreshToken, time.Now()).
		Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent, &s.ClientIP, &s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionToken swaps in a newly minted access token after a refresh.
func UpdateSessionToken(db *sql.DB, sessionID int64, token string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, token, sessionID)
	return err
}

// DeleteSessionByToken invalidates the session holding the given access
// token (single-device logout).
func DeleteSessionByToken(db *sql.DB, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// DeleteSessionsForUser removes every session of a user (logout-everywhere).
func DeleteSessionsForUser(db *sql.DB, userID int64) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}
