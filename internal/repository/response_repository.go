package repository

import (
	"github.com/lshigami/Sunbirds/internal/model"
	"gorm.io/gorm"
)

type ResponseRepository interface {
	Update(response *model.Response) error
	FindByAttemptID(attemptID uint) ([]model.Response, error)
}

type responseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) Update(response *model.Response) error {
	// Save updates all fields, including AIScore and AIFeedback.
	return r.db.Save(response).Error
}

func (r *responseRepository) FindByAttemptID(attemptID uint) ([]model.Response, error) {
	var responses []model.Response
	err := r.db.Where("attempt_id = ?", attemptID).Find(&responses).Error
	return responses, err
}
