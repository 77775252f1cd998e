package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/user"
)

var userColumns = []string{
	"id", "username", "email", "first_name", "last_name", "role", "bio", "avatar_url",
	"is_active", "password_hash", "created_at", "updated_at", "last_login",
}

var userOrderings = map[string]string{
	"username":   "username",
	"email":      "email",
	"first_name": "first_name",
	"last_name":  "last_name",
	"role":       "role",
	"created_at": "created_at",
	"last_login": "last_login",
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email, excludedID string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	check := func(where sq.Sqlizer) (bool, error) {
		q := builder(exe).Select("COUNT(*)").From("users").Where(where)
		if excludedID != "" {
			q = q.Where(sq.NotEq{"id": excludedID})
		}
		n, err := count(ctx, exe, q)
		return n > 0, err
	}

	if username != "" {
		taken, err := check(sq.Eq{"username": username})
		if err != nil {
			return errors.Wrap(err, "checking username uniqueness")
		}
		if taken {
			return user.ErrUsernameExists
		}
	}
	if email != "" {
		taken, err := check(sq.Eq{"email": email})
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
		if taken {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	usr.ID = newID()
	q := builder(exe).Insert("users").Columns(userColumns...).Values(
		usr.ID, usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.Role, usr.Bio, usr.AvatarURL,
		usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	)
	if _, err := execute(ctx, exe, q); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(userColumns...).From("users").Limit(1)

	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email}).OrderBy("created_at ASC")
	case filter.UsernameOrEmail != "":
		q = q.Where(sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}}).
			OrderBy("created_at ASC")
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := getOne(ctx, exe, &usr, q); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Select(userColumns...).From("users")

	if filter.Search != "" {
		q = q.Where(ilike(filter.Search, "username", "email", "first_name", "last_name"))
	}
	if len(filter.Roles) > 0 {
		q = q.Where(sq.Eq{"role": filter.Roles})
	}
	if filter.IsActive != nil {
		q = q.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	if !filter.CreatedFrom.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
	}
	if !filter.CreatedTo.IsZero() {
		q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
	}
	q = q.OrderBy(orderBy(ordering, userOrderings, "username ASC")...)

	var users []user.User
	if err := selectAll(ctx, exe, &users, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	q := builder(exe).Update("users").SetMap(map[string]interface{}{
		"username":      usr.Username,
		"email":         usr.Email,
		"first_name":    usr.FirstName,
		"last_name":     usr.LastName,
		"role":          usr.Role,
		"bio":           usr.Bio,
		"avatar_url":    usr.AvatarURL,
		"is_active":     usr.IsActive,
		"password_hash": usr.PasswordHash,
		"updated_at":    usr.UpdatedAt,
		"last_login":    usr.LastLogin,
	}).Where(sq.Eq{"id": usr.ID})

	n, err := execute(ctx, exe, q)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsers(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	exe := repo.getExec(exec)
	_, err := execute(ctx, exe, builder(exe).Delete("users").Where(sq.Eq{"id": ids}))
	return errors.Wrap(err, "deleting users")
}
