package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tripline/internal/auth"
	"tripline/internal/domain"
	"tripline/internal/events"
)

// NewUser is the signup payload.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	City      string
	Country   string
}

const userColumns = `id,email,first_name,last_name,COALESCE(phone,''),COALESCE(city,''),COALESCE(country,''),account_type,created_at`

func scanUser(row interface{ Scan(...any) error }, extra ...any) (domain.User, error) {
	var u domain.User
	dest := append([]any{&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.City, &u.Country, &u.AccountType, &u.CreatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// CreateUser stores a new account with a bcrypt password hash.
func (r Repo) CreateUser(ctx context.Context, in NewUser) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("valid email required")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return domain.User{}, fmt.Errorf("first and last name required")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Phone:       in.Phone,
		City:        in.City,
		Country:     in.Country,
		AccountType: "traveler",
		CreatedAt:   r.now(),
	}
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email=?`, u.Email).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrEmailTaken
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO users(id,email,password_hash,first_name,last_name,phone,city,country,account_type,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			u.ID, u.Email, hash, u.FirstName, u.LastName, nullable(u.Phone), nullable(u.City), nullable(u.Country), u.AccountType, u.CreatedAt, u.CreatedAt); err != nil {
			return err
		}
		return r.Events.Append(ctx, tx, events.UserCreated, "user", u.ID, u.ID, events.EventPayload{"email": u.Email})
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Authenticate returns the user for matching credentials or domain.ErrInvalidCredentials.
func (r Repo) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var hash string
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+`,password_hash FROM users WHERE email=?`, email), &hash)
	if errors.Is(err, ErrNotFound) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return domain.User{}, err
	}
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		return r.Events.Append(ctx, tx, events.UserLoggedIn, "user", u.ID, u.ID, nil)
	})
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}
