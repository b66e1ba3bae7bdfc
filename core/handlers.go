package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers interface {
	PostEvents(gctx *gin.Context)
	GetEvents(gctx *gin.Context)
	PutEvents(gctx *gin.Context)
	DeleteEvents(gctx *gin.Context)
	GetMeetings(gctx *gin.Context)
	GetUpcoming(gctx *gin.Context)
	GetPrevious(gctx *gin.Context)
	GetMonthGrid(gctx *gin.Context)
	GetCalendarStatus(gctx *gin.Context)
}

type handlers struct {
	repository Repository
	calendar   CalendarService
}

func NewHandlers(repository Repository, calendar CalendarService) Handlers {
	return &handlers{repository: repository, calendar: calendar}
}

func (h *handlers) PostEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var event Event

	// Accepts a JSON payload with user_id, title, description, start_time, end_time, attendees and meeting_link.
	err := gctx.ShouldBindJSON(&event)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to bind JSON", err))

		return
	}

	if event.UserId == "" {
		log.Ctx(ctx).Error().Ctx(ctx).Msg("user_id is required")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("event validation failed", ErrUserIdRequired))

		return
	}

	err = ValidateEvent(event)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("event validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("event validation failed", err))

		return
	}

	savedEvent, err := h.repository.SaveEvent(ctx, &event)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("saving event failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("saving event failed", err))

		return
	}

	gctx.JSON(http.StatusCreated, savedEvent)
}

func (h *handlers) GetEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	// Ready body
	body, err := io.ReadAll(gctx.Request.Body)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("failed to read request body")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to read request body", err))

		return
	}

	// Checks that in GET requests there is no body
	if len(body) != 0 {
		log.Ctx(ctx).Error().Ctx(ctx).Msg("request body is not empty")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("request body is not empty"))

		return
	}

	id, ok := requiredParam(gctx, "id")
	if !ok {
		return
	}

	event, err := h.repository.GetEventById(ctx, id)
	if err != nil {
		h.abortRepositoryError(gctx, "getting event failed", err)
		return
	}

	gctx.JSON(http.StatusOK, event)
}

func (h *handlers) PutEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := requiredParam(gctx, "id")
	if !ok {
		return
	}

	var event Event

	err := gctx.ShouldBindJSON(&event)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("failed to bind JSON")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("failed to bind JSON", err))

		return
	}

	err = ValidateEvent(event)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("event validation failed")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("event validation failed", err))

		return
	}

	updated, err := h.repository.UpdateEvent(ctx, id, &event)
	if err != nil {
		h.abortRepositoryError(gctx, "updating event failed", err)
		return
	}

	gctx.JSON(http.StatusOK, updated)
}

func (h *handlers) DeleteEvents(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	id, ok := requiredParam(gctx, "id")
	if !ok {
		return
	}

	err := h.repository.DeleteEvent(ctx, id)
	if err != nil {
		h.abortRepositoryError(gctx, "deleting event failed", err)
		return
	}

	gctx.Status(http.StatusNoContent)
}

func (h *handlers) GetMeetings(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	userId, loc, ok := calendarParams(gctx)
	if !ok {
		return
	}

	dashboard, err := h.calendar.Dashboard(ctx, userId, loc)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("building dashboard failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("building dashboard failed", err))

		return
	}

	gctx.JSON(http.StatusOK, dashboard)
}

func (h *handlers) GetUpcoming(gctx *gin.Context) {
	h.listMeetings(gctx, h.calendar.Upcoming)
}

func (h *handlers) GetPrevious(gctx *gin.Context) {
	h.listMeetings(gctx, h.calendar.Previous)
}

type listFn func(ctx context.Context, userId string, loc *time.Location, limit int) (*MeetingList, error)

func (h *handlers) listMeetings(gctx *gin.Context, list listFn) {
	ctx := gctx.Request.Context()

	userId, loc, ok := calendarParams(gctx)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(gctx.DefaultQuery("limit", strconv.Itoa(DefaultListLimit)))
	if err != nil || limit <= 0 {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("invalid limit")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'limit' must be a positive integer", err))

		return
	}

	meetings, err := list(ctx, userId, loc, limit)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("listing meetings failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("listing meetings failed", err))

		return
	}

	gctx.JSON(http.StatusOK, meetings)
}

func (h *handlers) GetMonthGrid(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	userId, loc, ok := calendarParams(gctx)
	if !ok {
		return
	}

	year, errYear := strconv.Atoi(gctx.Query("year"))
	month, errMonth := strconv.Atoi(gctx.Query("month"))

	if errYear != nil || errMonth != nil || year < 1 || year > 9999 || month < 1 || month > 12 {
		log.Ctx(ctx).Error().Ctx(ctx).Str("year", gctx.Query("year")).Str("month", gctx.Query("month")).Msg("invalid year or month")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameters 'year' and 'month' are required", errYear, errMonth))

		return
	}

	grid, err := h.calendar.MonthGrid(ctx, userId, year, time.Month(month), loc)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("building month grid failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("building month grid failed", err))

		return
	}

	gctx.JSON(http.StatusOK, grid)
}

func (h *handlers) GetCalendarStatus(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	userId, ok := requiredParam(gctx, "user_id")
	if !ok {
		return
	}

	status, err := h.calendar.Status(ctx, userId)
	if err != nil {
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg("getting calendar status failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError("getting calendar status failed", err))

		return
	}

	gctx.JSON(http.StatusOK, status)
}

func (h *handlers) abortRepositoryError(gctx *gin.Context, message string, err error) {
	ctx := gctx.Request.Context()

	// Checks that for missing events, 404 is returned
	if errors.Is(err, ErrEventNotFound) {
		log.Ctx(ctx).Info().Ctx(ctx).Msg("event not found")
		gctx.AbortWithStatusJSON(http.StatusNotFound, NewError("event not found", err))

		return
	}

	log.Ctx(ctx).Error().Ctx(ctx).Err(err).Msg(message)
	gctx.AbortWithStatusJSON(http.StatusInternalServerError, NewError(message, err))
}

func requiredParam(gctx *gin.Context, name string) (string, bool) {
	ctx := gctx.Request.Context()

	value := gctx.Param(name)
	if len(value) == 0 {
		log.Ctx(ctx).Error().Ctx(ctx).Msgf("parameter '%s' is required", name)
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter '"+name+"' is required"))

		return "", false
	}

	return value, true
}

// calendarParams reads the user and the optional viewer time zone (?tz=Europe/Madrid).
func calendarParams(gctx *gin.Context) (string, *time.Location, bool) {
	userId, ok := requiredParam(gctx, "user_id")
	if !ok {
		return "", nil, false
	}

	tz := gctx.Query("tz")
	if tz == "" {
		return userId, nil, true
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		ctx := gctx.Request.Context()
		log.Ctx(ctx).Error().Ctx(ctx).Err(err).Str("tz", tz).Msg("invalid time zone")
		gctx.AbortWithStatusJSON(http.StatusBadRequest, NewError("parameter 'tz' is not a valid time zone", err))

		return "", nil, false
	}

	return userId, loc, true
}
