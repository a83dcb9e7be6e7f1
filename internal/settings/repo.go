package settings

import (
	"context"
	"errors"

	"github.com/angelmondragon/portal/internal/repo"
	"github.com/angelmondragon/portal/pkg/db/models"
	"gorm.io/gorm"
)

// ErrAlreadyCompleted is returned by MarkCompleted when another writer
// flipped the flag first.
var ErrAlreadyCompleted = errors.New("setup already completed")

// Repository reads and flips the singleton settings row.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{Base: r.Base.WithTx(tx)}
}

// SetupCompleted reports the flag. A missing row reads as false.
func (r *Repository) SetupCompleted(ctx context.Context) (bool, error) {
	var row models.Settings
	err := r.DB(ctx).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.SetupCompleted, nil
}

// MarkCompleted flips the flag from false to true exactly once, creating the
// row when it is missing.
func (r *Repository) MarkCompleted(ctx context.Context) error {
	conn := r.DB(ctx)
	res := conn.Model(&models.Settings{}).
		Where(map[string]any{"setupCompleted": false}).
		Update("setupCompleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := conn.Model(&models.Settings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyCompleted
	}
	return conn.Create(&models.Settings{SetupCompleted: true}).Error
}
