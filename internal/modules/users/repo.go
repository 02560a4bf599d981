package users

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("user does not exist")
	ErrEmailTaken = errors.New("email already in use")
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrNotFound
	}
	return u, err
}

type ListParams struct {
	Page     int
	PageSize int
	Search   string // username or email substring
}

type ListResult struct {
	Items []User
	Total int64
}

func (r *Repo) List(ctx context.Context, in ListParams) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 10
	}

	q := r.db.WithContext(ctx).Model(&User{})
	if s := strings.TrimSpace(in.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var items []User
	if err := q.Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Update applies username/email changes. Password and role never change
// through this path; password has its own reset flow.
func (r *Repo) Update(ctx context.Context, id string, fields map[string]any) (User, error) {
	delete(fields, "password")
	delete(fields, "password_hash")
	delete(fields, "role")

	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&User{}).
			Where("id = ?", id).
			Updates(fields).Error; err != nil {
			return User{}, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) SetPasswordHash(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *Repo) Delete(ctx context.Context, id string) (User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	return u, r.db.WithContext(ctx).Delete(&User{}, "id = ?", id).Error
}
