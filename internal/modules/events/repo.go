package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("event not found")

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (Event, error) {
	var e Event
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Event{}, ErrNotFound
	}
	return e, err
}

// EventPricing implements the payment module's price source: the event price
// is authoritative whenever it is positive.
func (r *Repo) EventPricing(ctx context.Context, id string) (int, string, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, "", err
	}
	return e.Price, e.Title, nil
}

type ListParams struct {
	Page     int
	PageSize int
	Search   string // title substring
	From     *time.Time
	To       *time.Time
	MinPrice *int
	MaxPrice *int
}

type ListResult struct {
	Items []Event
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

	q := r.db.WithContext(ctx).Model(&Event{})
	if s := strings.TrimSpace(in.Search); s != "" {
		q = q.Where("title LIKE ?", "%"+s+"%")
	}
	if in.From != nil {
		q = q.Where("date >= ?", *in.From)
	}
	if in.To != nil {
		// inclusive end of day
		q = q.Where("date <= ?", in.To.Add(24*time.Hour-time.Millisecond))
	}
	if in.MinPrice != nil {
		q = q.Where("price >= ?", *in.MinPrice)
	}
	if in.MaxPrice != nil {
		q = q.Where("price <= ?", *in.MaxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var items []Event
	if err := q.Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

type UpdateParams struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
	Price       int
}

func (r *Repo) Update(ctx context.Context, id string, in UpdateParams) (Event, error) {
	if err := r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":       in.Title,
			"description": in.Description,
			"date":        in.Date,
			"location":    in.Location,
			"price":       in.Price,
			"updated_at":  time.Now(),
		}).Error; err != nil {
		return Event{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) SetPoster(ctx context.Context, id, key, url string) error {
	return r.db.WithContext(ctx).Model(&Event{}).
		Where("id = ?", id).
		Updates(map[string]any{"poster_key": key, "poster_url": url, "updated_at": time.Now()}).Error
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&Event{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
