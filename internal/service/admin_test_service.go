package service

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/lshigami/Sunbirds/internal/dto"
	"github.com/lshigami/Sunbirds/internal/model"
	"github.com/lshigami/Sunbirds/internal/repository"
	"github.com/rs/zerolog/log"
)

type AdminTestService interface {
	CreateTest(req dto.CreateTestRequest) (*dto.TestResponseDTO, error)
}

type adminTestService struct {
	testRepo repository.TestRepository
}

func NewAdminTestService(testRepo repository.TestRepository) AdminTestService {
	return &adminTestService{testRepo: testRepo}
}

func (s *adminTestService) CreateTest(req dto.CreateTestRequest) (*dto.TestResponseDTO, error) {
	sections, err := buildSections(req.Sections)
	if err != nil {
		return nil, err
	}

	testModel := model.Test{
		Title:            req.Title,
		Description:      req.Description,
		Skill:            req.Skill,
		TimeLimitMinutes: req.TimeLimitMinutes,
		Sections:         sections,
	}

	if err := s.testRepo.Create(&testModel); err != nil {
		log.Error().Err(err).Msg("Failed to create test in database")
		return nil, fmt.Errorf("database error creating test: %w", err)
	}

	createdTest, err := s.testRepo.FindByIDWithSections(testModel.ID)
	if err != nil {
		log.Error().Err(err).Uint("testID", testModel.ID).Msg("Failed to retrieve newly created test for response")
		var fallbackResp dto.TestResponseDTO
		copier.Copy(&fallbackResp, &testModel)
		return &fallbackResp, nil
	}

	var resp dto.TestResponseDTO
	if err := copier.Copy(&resp, createdTest); err != nil {
		log.Error().Err(err).Msg("Failed to copy created Test model to TestResponseDTO")
		return nil, fmt.Errorf("error preparing response data: %w", err)
	}
	return &resp, nil
}

func buildSections(reqs []dto.SectionForTestRequest) ([]model.Section, error) {
	sectionOrders := make(map[int]bool)
	sections := make([]model.Section, 0, len(reqs))

	for _, sDto := range reqs {
		if sectionOrders[sDto.OrderInTest] {
			return nil, fmt.Errorf("duplicate OrderInTest %d found in sections", sDto.OrderInTest)
		}
		sectionOrders[sDto.OrderInTest] = true

		questionOrders := make(map[int]bool)
		questions := make([]model.Question, 0, len(sDto.Questions))
		for _, qDto := range sDto.Questions {
			if questionOrders[qDto.OrderInSection] {
				return nil, fmt.Errorf("duplicate OrderInSection %d in section '%s'", qDto.OrderInSection, sDto.Title)
			}
			questionOrders[qDto.OrderInSection] = true

			if qDto.MaxScore <= 0 {
				return nil, fmt.Errorf("MaxScore for question '%s' must be positive, got %.1f", qDto.Title, qDto.MaxScore)
			}
			if qDto.Type == model.QuestionTypeMultipleChoice && (qDto.OptionsJSON == nil || *qDto.OptionsJSON == "") {
				return nil, fmt.Errorf("question '%s' of type 'multiple_choice' requires OptionsJSON", qDto.Title)
			}

			var questionModel model.Question
			copier.Copy(&questionModel, &qDto)
			questions = append(questions, questionModel)
		}

		sections = append(sections, model.Section{
			Title:       sDto.Title,
			OrderInTest: sDto.OrderInTest,
			PassageText: sDto.PassageText,
			AudioURL:    sDto.AudioURL,
			Questions:   questions,
		})
	}
	return sections, nil
}
