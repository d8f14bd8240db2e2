package repository

import (
	"github.com/lshigami/Sunbirds/internal/model"
	"gorm.io/gorm"
)

type SpeakingUploadRepository interface {
	// ReplaceForQuestion records a new upload for a speaking question,
	// superseding any prior upload of the same question in the attempt.
	ReplaceForQuestion(upload *model.SpeakingUpload) error
	FindByAttemptID(attemptID uint) ([]model.SpeakingUpload, error)
}

type speakingUploadRepository struct {
	db *gorm.DB
}

func NewSpeakingUploadRepository(db *gorm.DB) SpeakingUploadRepository {
	return &speakingUploadRepository{db: db}
}

func (r *speakingUploadRepository) ReplaceForQuestion(upload *model.SpeakingUpload) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("attempt_id = ? AND question_id = ?", upload.AttemptID, upload.QuestionID).
			Delete(&model.SpeakingUpload{}).Error; err != nil {
			return err
		}
		return tx.Create(upload).Error
	})
}

func (r *speakingUploadRepository) FindByAttemptID(attemptID uint) ([]model.SpeakingUpload, error) {
	var uploads []model.SpeakingUpload
	err := r.db.Where("attempt_id = ?", attemptID).Order("question_id ASC").Find(&uploads).Error
	return uploads, err
}
