package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Sunbirds/internal/dto"
	"github.com/lshigami/Sunbirds/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminTestController struct {
	adminTestService service.AdminTestService
}

func NewAdminTestController(ats service.AdminTestService) *AdminTestController {
	return &AdminTestController{adminTestService: ats}
}

// CreateTest godoc
// @Summary (Admin) Create a new test
// @Description Create a test with its sections and questions in one request.
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Param test body dto.CreateTestRequest true "Test data including sections and questions"
// @Success 201 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/tests [post]
func (c *AdminTestController) CreateTest(ctx *gin.Context) {
	var req dto.CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateTest: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	testResp, err := c.adminTestService.CreateTest(req)
	if err != nil {
		log.Error().Err(err).Msg("Admin CreateTest: Service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create test", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, testResp)
}
