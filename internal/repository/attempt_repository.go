package repository

import (
	"github.com/lshigami/Sunbirds/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.Attempt) error
	Update(attempt *model.Attempt) error
	FindByID(id uint) (*model.Attempt, error)
	FindByIDWithDetails(id uint) (*model.Attempt, error)
	FindAllByTestAndUser(testID uint, userID *uint) ([]model.Attempt, error)
	FindInProgressByTestAndUser(testID uint, userID *uint) (*model.Attempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.Attempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) Update(attempt *model.Attempt) error {
	return r.db.Save(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByIDWithDetails(id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.
		Preload("Test").
		Preload("Responses.Question").
		Preload("SpeakingUploads").
		First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindAllByTestAndUser(testID uint, userID *uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	query := r.db.Where("test_id = ?", testID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	err := query.Order("started_at DESC").Find(&attempts).Error
	return attempts, err
}

// FindInProgressByTestAndUser returns the user's open attempt for a test so a
// returning student resumes instead of starting over. gorm.ErrRecordNotFound
// when there is none.
func (r *attemptRepository) FindInProgressByTestAndUser(testID uint, userID *uint) (*model.Attempt, error) {
	var attempt model.Attempt
	query := r.db.Where("test_id = ? AND status = ?", testID, model.AttemptStatusInProgress)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("user_id IS NULL")
	}
	err := query.Order("started_at DESC").First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
