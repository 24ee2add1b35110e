package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-marketplace/internal/shop"
)

const userColumns = `id, name, last_name, email, phone, COALESCE(matricula, ''), password_hash,
	role, gender, image, created_at, updated_at`

func scanUser(row pgx.Row) (*shop.User, error) {
	var u shop.User
	err := row.Scan(&u.ID, &u.Name, &u.LastName, &u.Email, &u.Phone, &u.Matricula, &u.PasswordHash,
		&u.Role, &u.Gender, &u.Image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) CreateUser(ctx context.Context, u *shop.User) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO users(id, name, last_name, email, phone, matricula, password_hash, role, gender, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Name, u.LastName, u.Email, u.Phone, u.Matricula, u.PasswordHash,
		string(u.Role), string(u.Gender), u.Image, u.CreatedAt, u.UpdatedAt)
	if c, ok := uniqueViolation(err); ok {
		switch c {
		case "users_email_key":
			return shop.ErrEmailTaken
		case "users_matricula_key":
			return shop.ErrMatriculaTaken
		}
	}
	if err != nil {
		return wrap("create user", err)
	}
	return nil
}

func (r *repo) getUser(ctx context.Context, op, where string, arg any) (*shop.User, error) {
	u, err := scanUser(r.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shop.ErrUserNotFound
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

func (r *repo) GetUser(ctx context.Context, id string) (*shop.User, error) {
	return r.getUser(ctx, "get user", `id = $1`, id)
}

func (r *repo) GetUserByEmail(ctx context.Context, email string) (*shop.User, error) {
	return r.getUser(ctx, "get user by email", `email = $1`, email)
}

func (r *repo) GetUserByMatricula(ctx context.Context, matricula string) (*shop.User, error) {
	return r.getUser(ctx, "get user by matricula", `matricula = $1`, matricula)
}

func (r *repo) ListUsers(ctx context.Context) ([]shop.User, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	out := []shop.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scan user", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list users", err)
	}
	return out, nil
}

func (r *repo) UpdateUser(ctx context.Context, u *shop.User) error {
	ct, err := r.tx.Exec(ctx, `
		UPDATE users SET name=$2, last_name=$3, phone=$4, role=$5, gender=$6, image=$7, updated_at=$8
		WHERE id=$1`,
		u.ID, u.Name, u.LastName, u.Phone, string(u.Role), string(u.Gender), u.Image, u.UpdatedAt)
	if err != nil {
		return wrap("update user", err)
	}
	if ct.RowsAffected() == 0 {
		return shop.ErrUserNotFound
	}
	return nil
}

func (r *repo) DeleteUser(ctx context.Context, id string) error {
	ct, err := r.tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return wrap("delete user", err)
	}
	if ct.RowsAffected() == 0 {
		return shop.ErrUserNotFound
	}
	return nil
}
