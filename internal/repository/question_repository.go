package repository

import (
	"github.com/lshigami/Sunbirds/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	Create(question *model.Question) error
	FindByID(id uint) (*model.Question, error)
	FindBySectionID(sectionID uint) ([]model.Question, error)
	FindByTestID(testID uint) ([]model.Question, error)
	FindSpeakingIDsByTestID(testID uint) ([]uint, error)
	Update(question *model.Question) error
	Delete(id uint) error
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(question *model.Question) error {
	return r.db.Create(question).Error
}

func (r *questionRepository) FindByID(id uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepository) FindBySectionID(sectionID uint) ([]model.Question, error) {
	var questions []model.Question
	if err := r.db.Where("section_id = ?", sectionID).Order("order_in_section ASC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) FindByTestID(testID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.
		Joins("JOIN sections ON sections.id = questions.section_id").
		Where("sections.test_id = ?", testID).
		Order("sections.order_in_test ASC, questions.order_in_section ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// FindSpeakingIDsByTestID returns the speaking question ids the attempt
// runtime tracks per-question upload slots for.
func (r *questionRepository) FindSpeakingIDsByTestID(testID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Question{}).
		Joins("JOIN sections ON sections.id = questions.section_id").
		Where("sections.test_id = ? AND questions.type = ?", testID, model.QuestionTypeSpeaking).
		Order("questions.id ASC").
		Pluck("questions.id", &ids).Error
	return ids, err
}

func (r *questionRepository) Update(question *model.Question) error {
	return r.db.Save(question).Error
}

func (r *questionRepository) Delete(id uint) error {
	return r.db.Delete(&model.Question{}, id).Error
}
