package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
)

// UserRepo handles users.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Insert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO users(id, email, first_name, last_name, password_hash, refresh_token, role, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP);
	`, u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.RefreshToken, u.Role)
	return err
}

func (r *UserRepo) Get(ctx context.Context, id string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, first_name, last_name, password_hash, refresh_token, role, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, first_name, last_name, password_hash, refresh_token, role, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateRefreshToken replaces the stored mailbox credential. Called on re-auth.
func (r *UserRepo) UpdateRefreshToken(ctx context.Context, id string, token *string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET refresh_token = ? WHERE id = ?`, token, id)
	return err
}

// HashPassword produces a salted hash in the stored "sha256:<salt>:<hex>" format.
func HashPassword(plain string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltHex := hex.EncodeToString(salt)
	sum := sha256.Sum256([]byte(saltHex + plain))
	return fmt.Sprintf("sha256:%s:%x", saltHex, sum), nil
}

// CheckPassword verifies a plaintext against a stored hash.
func (u User) CheckPassword(plain string) bool {
	if u.PasswordHash == nil {
		return false
	}
	parts := strings.SplitN(*u.PasswordHash, ":", 3)
	if len(parts) != 3 || parts[0] != "sha256" {
		return false
	}
	sum := sha256.Sum256([]byte(parts[1] + plain))
	return hex.EncodeToString(sum[:]) == parts[2]
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.RefreshToken, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
