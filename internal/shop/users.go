package shop

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

type UserInput struct {
	Name      string `json:"name"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Matricula string `json:"matricula"`
	Role      Role   `json:"role"`
	Gender    Gender `json:"gender"`
	Image     string `json:"image"`
}

// UserPatch fields left empty keep their current value.
type UserPatch struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Phone    string `json:"phone"`
	Gender   Gender `json:"gender"`
	Image    string `json:"image"`
}

type LoginResult struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (in UserInput) validate() error {
	switch {
	case in.Name == "" || in.LastName == "" || in.Email == "" || in.Phone == "" || in.Password == "" || in.Gender == "":
		return validationf("all fields except matricula are required")
	case !phonePattern.MatchString(in.Phone):
		return validationf("phone must have 10 digits")
	case !in.Gender.Valid():
		return validationf("invalid gender %q", in.Gender)
	case in.Role != "" && !in.Role.Valid():
		return validationf("invalid role %q", in.Role)
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	u := &User{
		ID:           s.NewID(),
		Name:         in.Name,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		Matricula:    in.Matricula,
		PasswordHash: string(hash),
		Role:         role,
		Gender:       in.Gender,
		Image:        in.Image,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetUserByEmail(ctx, u.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if u.Matricula != "" {
			if _, err := tx.GetUserByMatricula(ctx, u.Matricula); err == nil {
				return ErrMatriculaTaken
			} else if !errors.Is(err, ErrUserNotFound) {
				return err
			}
		}
		return tx.CreateUser(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	var out *User
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, id)
		out = u
		return err
	})
	return out, err
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		us, err := tx.ListUsers(ctx)
		out = us
		return err
	})
	return out, err
}

func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	if patch.Phone != "" && !phonePattern.MatchString(patch.Phone) {
		return nil, validationf("phone must have 10 digits")
	}
	if patch.Gender != "" && !patch.Gender.Valid() {
		return nil, validationf("invalid gender %q", patch.Gender)
	}
	return s.mutateUser(ctx, id, func(u *User) {
		if patch.Name != "" {
			u.Name = patch.Name
		}
		if patch.LastName != "" {
			u.LastName = patch.LastName
		}
		if patch.Phone != "" {
			u.Phone = patch.Phone
		}
		if patch.Gender != "" {
			u.Gender = patch.Gender
		}
		if patch.Image != "" {
			u.Image = patch.Image
		}
	})
}

func (s *Service) UpdateUserRole(ctx context.Context, id string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, validationf("invalid role %q", role)
	}
	return s.mutateUser(ctx, id, func(u *User) { u.Role = role })
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteUser(ctx, id)
	})
}

// Login checks the password only; no session or token is issued.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, validationf("email and password are required")
	}
	var u *User
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		u, err = tx.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &LoginResult{ID: u.ID, Name: u.Name, Role: u.Role}, nil
}

func (s *Service) mutateUser(ctx context.Context, id string, fn func(u *User)) (*User, error) {
	var out *User
	err := s.Store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		fn(u)
		u.UpdatedAt = s.Now()
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}
