package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/Sunbirds/internal/dto"
	"github.com/lshigami/Sunbirds/internal/service"
	"github.com/lshigami/Sunbirds/internal/submission"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AttemptController exposes the attempt runtime: starting and resuming
// attempts, saving answers, highlighting, speaking uploads and the final
// submission.
type AttemptController struct {
	attemptService service.AttemptService
}

func NewAttemptController(as service.AttemptService) *AttemptController {
	return &AttemptController{attemptService: as}
}

// StartAttempt godoc
// @Summary (User) Start or resume an attempt for a test
// @Description Opens a new in-progress attempt, or resumes the user's existing one with its saved answers and original deadline.
// @Tags User - Attempts
// @Accept json
// @Produce json
// @Param test_id path int true "Test ID"
// @Param body body dto.StartAttemptRequest true "User starting the attempt"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Test ID format"
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Router /tests/{test_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	testID, ok := parseIDParam(ctx, "test_id")
	if !ok {
		return
	}

	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	state, err := c.attemptService.StartAttempt(testID, req)
	if err != nil {
		log.Warn().Err(err).Uint("testID", testID).Msg("StartAttempt: Service error")
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// GetAttemptState godoc
// @Summary (User) Get the live state of an attempt
// @Description Returns the remaining time, saved answers and speaking upload slots of an attempt. The countdown is derived from the stored start time, so a reload never resets it.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Attempt ID format"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/state [get]
func (c *AttemptController) GetAttemptState(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	state, err := c.attemptService.GetState(attemptID)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// SaveAnswers godoc
// @Summary (User) Save one or more answers
// @Description Merges answer changes into the attempt's cache. Durable persistence happens on the periodic flush, not per keystroke.
// @Tags User - Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.SaveAnswersRequest true "Answer changes"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 409 {object} dto.ErrorResponse "Attempt is no longer in progress"
// @Router /attempts/{attempt_id}/answers [put]
func (c *AttemptController) SaveAnswers(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.SaveAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	state, err := c.attemptService.SaveAnswers(attemptID, req)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// SubmitAttempt godoc
// @Summary (User) Submit an attempt for scoring
// @Description Transforms the saved answers into the scoring payload and submits them. Speaking questions whose upload failed are reported, never blocking. A second submit while one is running is rejected.
// @Tags User - Attempts
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.SubmitAttemptRequest true "Submission options"
// @Success 200 {object} dto.SubmitResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Attempt ID format"
// @Failure 409 {object} dto.ErrorResponse "Submission already in progress or attempt already submitted"
// @Failure 500 {object} dto.ErrorResponse "Scoring backend error; the attempt stays open for retry"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	result, err := c.attemptService.Submit(ctx.Request.Context(), attemptID, req)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Msg("SubmitAttempt: submission did not complete")
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// UploadAudio godoc
// @Summary (User) Upload a speaking question's recording
// @Description Stores one speaking recording as an independent sub-upload. A failed upload leaves the question retryable and never blocks the final submission.
// @Tags User - Attempts
// @Accept multipart/form-data
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param question_id path int true "Speaking Question ID"
// @Param audio formData file true "Audio recording"
// @Param duration_seconds formData number false "Recording duration in seconds"
// @Success 200 {object} dto.UploadedSpeakingFileDTO
// @Failure 400 {object} dto.ErrorResponse "Missing or invalid audio file"
// @Failure 409 {object} dto.ErrorResponse "An upload for this question is already running"
// @Failure 500 {object} dto.ErrorResponse "Storage error"
// @Router /attempts/{attempt_id}/speaking/{question_id}/audio [post]
func (c *AttemptController) UploadAudio(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	questionID, ok := parseIDParam(ctx, "question_id")
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Missing audio file", Details: []string{err.Error()}})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Could not read audio file", Details: []string{err.Error()}})
		return
	}
	defer file.Close()

	clip := submission.AudioClip{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:   fileHeader.Size,
		Body:        file,
	}
	if durStr := ctx.PostForm("duration_seconds"); durStr != "" {
		if dur, parseErr := strconv.ParseFloat(durStr, 64); parseErr == nil {
			clip.DurationSeconds = &dur
		}
	}

	uploaded, err := c.attemptService.UploadAudio(ctx.Request.Context(), attemptID, questionID, clip)
	if err != nil {
		log.Warn().Err(err).Uint("attemptID", attemptID).Uint("questionID", questionID).Msg("UploadAudio: upload failed")
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, uploaded)
}

// AbandonAttempt godoc
// @Summary (User) Leave an attempt without submitting
// @Description Closes the live session. Saved answers stay durable; starting the test again resumes the same attempt.
// @Tags User - Attempts
// @Param attempt_id path int true "Attempt ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "No live session for this attempt"
// @Router /attempts/{attempt_id}/session [delete]
func (c *AttemptController) AbandonAttempt(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	if err := c.attemptService.Abandon(attemptID); err != nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// CommitSelection godoc
// @Summary (User) Report a committed text selection
// @Description A non-empty selection inside a tracked passage opens the highlight toolbar in add mode. Collapsed selections are ignored.
// @Tags User - Highlights
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.CommitSelectionRequest true "Selection range and bounding rectangle"
// @Success 200 {object} dto.ToolbarDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Router /attempts/{attempt_id}/highlights/selection [post]
func (c *AttemptController) CommitSelection(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.CommitSelectionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	toolbar, err := c.attemptService.CommitSelection(attemptID, req)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, toolbar)
}

// AddHighlight godoc
// @Summary (User) Highlight the pending selection
// @Description Creates a highlight over the previously committed selection in the chosen palette color. Overlapping highlights coexist.
// @Tags User - Highlights
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param body body dto.AddHighlightRequest true "Palette color"
// @Success 201 {object} dto.HighlightSpanDTO
// @Failure 400 {object} dto.ErrorResponse "No pending selection or invalid color"
// @Router /attempts/{attempt_id}/highlights [post]
func (c *AttemptController) AddHighlight(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.AddHighlightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	span, err := c.attemptService.AddHighlight(attemptID, req)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, span)
}

// ActivateHighlight godoc
// @Summary (User) Click an existing highlight
// @Description Opens the toolbar in remove mode anchored to the clicked highlight.
// @Tags User - Highlights
// @Accept json
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param span_id path string true "Highlight ID"
// @Param body body dto.ActivateHighlightRequest true "Highlight bounding rectangle"
// @Success 200 {object} dto.ToolbarDTO
// @Failure 404 {object} dto.ErrorResponse "Highlight not found"
// @Router /attempts/{attempt_id}/highlights/{span_id}/activate [post]
func (c *AttemptController) ActivateHighlight(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	spanID := ctx.Param("span_id")

	var req dto.ActivateHighlightRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	toolbar, err := c.attemptService.ActivateHighlight(attemptID, spanID, req)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, toolbar)
}

// RemoveHighlight godoc
// @Summary (User) Remove a highlight
// @Description Deletes one highlight and hides the toolbar.
// @Tags User - Highlights
// @Param attempt_id path int true "Attempt ID"
// @Param span_id path string true "Highlight ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "Highlight not found"
// @Router /attempts/{attempt_id}/highlights/{span_id} [delete]
func (c *AttemptController) RemoveHighlight(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	if err := c.attemptService.RemoveHighlight(attemptID, ctx.Param("span_id")); err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// DismissToolbar godoc
// @Summary (User) Dismiss the highlight toolbar
// @Description Hides the toolbar without changing any highlight.
// @Tags User - Highlights
// @Param attempt_id path int true "Attempt ID"
// @Success 204 "No Content"
// @Router /attempts/{attempt_id}/highlights/toolbar [delete]
func (c *AttemptController) DismissToolbar(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	if err := c.attemptService.DismissToolbar(attemptID); err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListHighlights godoc
// @Summary (User) List a section's highlights
// @Description Returns the section's highlights in creation order.
// @Tags User - Highlights
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param section_id path int true "Section ID"
// @Success 200 {array} dto.HighlightSpanDTO
// @Router /attempts/{attempt_id}/sections/{section_id}/highlights [get]
func (c *AttemptController) ListHighlights(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	sectionID, ok := parseIDParam(ctx, "section_id")
	if !ok {
		return
	}

	spans, err := c.attemptService.ListHighlights(attemptID, sectionID)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, spans)
}

// ClearSectionHighlights godoc
// @Summary (User) Remove every highlight in a section
// @Description Clears all of the section's highlights at once. Other sections are untouched.
// @Tags User - Highlights
// @Param attempt_id path int true "Attempt ID"
// @Param section_id path int true "Section ID"
// @Success 204 "No Content"
// @Router /attempts/{attempt_id}/sections/{section_id}/highlights [delete]
func (c *AttemptController) ClearSectionHighlights(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}
	sectionID, ok := parseIDParam(ctx, "section_id")
	if !ok {
		return
	}
	if err := c.attemptService.ClearSectionHighlights(attemptID, sectionID); err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GetRemainingTime godoc
// @Summary (User) Read the attempt's countdown
// @Description Returns the remaining seconds, derived server-side from the stored start time.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.RemainingTimeDTO
// @Failure 409 {object} dto.ErrorResponse "Attempt is no longer in progress"
// @Router /attempts/{attempt_id}/time [get]
func (c *AttemptController) GetRemainingTime(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	remaining, err := c.attemptService.GetRemainingTime(attemptID)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, remaining)
}

// GetAttemptResults godoc
// @Summary (User) Get the results of a scored attempt
// @Description Full details of a submitted attempt: per-question responses, AI feedback, raw and band scores, speaking uploads.
// @Tags User - Attempts
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptDetailDTO
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /attempts/{attempt_id}/results [get]
func (c *AttemptController) GetAttemptResults(ctx *gin.Context) {
	attemptID, ok := parseIDParam(ctx, "attempt_id")
	if !ok {
		return
	}

	detail, err := c.attemptService.GetResults(attemptID)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// GetUserTestAttempts godoc
// @Summary (User) List a user's attempts for a test
// @Tags User - Attempts
// @Produce json
// @Param test_id path int true "Test ID"
// @Param user_id query int false "User ID to filter attempts. (Temporary - will be from auth token)"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Router /tests/{test_id}/my-attempts [get]
func (c *AttemptController) GetUserTestAttempts(ctx *gin.Context) {
	testID, ok := parseIDParam(ctx, "test_id")
	if !ok {
		return
	}

	var userID *uint
	if userIDStr := ctx.Query("user_id"); userIDStr != "" {
		val, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid User ID format in query"})
			return
		}
		uID := uint(val)
		userID = &uID
	}

	attempts, err := c.attemptService.GetUserAttempts(testID, userID)
	if err != nil {
		ctx.JSON(statusForError(err), dto.ErrorResponse{Message: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAttemptNotActive),
		errors.Is(err, submission.ErrSubmissionInFlight),
		errors.Is(err, submission.ErrAlreadySubmitted),
		errors.Is(err, submission.ErrUploadInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
