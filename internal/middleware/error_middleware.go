package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
	"github.com/yigit/hostelhub/internal/pkg/logger"
)

type errorMapping struct {
	target error
	status int
	code   dto.ErrorCode
}

// errorMappings is checked in order. Specific occupancy and billing errors come before
// ErrPartialAdmission so an admission that failed on a full room still reports OCC_001,
// and the generic classes come last.
var errorMappings = []errorMapping{
	{apperrors.ErrRoomFull, http.StatusConflict, dto.ErrorCodeRoomFull},
	{apperrors.ErrBedTaken, http.StatusConflict, dto.ErrorCodeBedTaken},
	{apperrors.ErrStudentInactive, http.StatusConflict, dto.ErrorCodeStudentInactive},
	{apperrors.ErrAlreadyAssigned, http.StatusConflict, dto.ErrorCodeAlreadyAssigned},
	{apperrors.ErrInvalidBed, http.StatusBadRequest, dto.ErrorCodeInvalidBed},
	{apperrors.ErrRoomNotInHostel, http.StatusBadRequest, dto.ErrorCodeInvalidBed},
	{apperrors.ErrAlreadyGenerated, http.StatusConflict, dto.ErrorCodeAlreadyGenerated},
	{apperrors.ErrAlreadyVerified, http.StatusConflict, dto.ErrorCodeAlreadyVerified},
	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition},
	{apperrors.ErrReceiptExhausted, http.StatusServiceUnavailable, dto.ErrorCodeReceiptExhausted},
	{apperrors.ErrCapacityUnderflow, http.StatusConflict, dto.ErrorCodeResourceInvalid},
	{apperrors.ErrUsernameExhausted, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrPartialAdmission, http.StatusInternalServerError, dto.ErrorCodePartialAdmission},
	{apperrors.ErrNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrInvalidFormat, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
}

// StatusFor returns the HTTP status and error code HandleAPIError would use for err
func StatusFor(err error) (int, dto.ErrorCode) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, dto.ErrorCodeInternalServer
}

// HandleAPIError writes the error envelope for err
func HandleAPIError(c *gin.Context, err error) {
	status, code := StatusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Str("method", c.Request.Method).Msg("Request failed")
		if code == dto.ErrorCodeInternalServer {
			message = "Internal server error"
		}
	}

	errorDetail := dto.NewErrorDetail(code, message)
	var admission *apperrors.AdmissionError
	if errors.As(err, &admission) {
		errorDetail = errorDetail.WithDetails(map[string]string{"failedStep": admission.Step})
	}

	c.JSON(status, dto.NewErrorResponse(errorDetail))
}

// RespondValidationError reports a binding failure as 400
func RespondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}

// RespondInvalidID reports a malformed path parameter
func RespondInvalidID(c *gin.Context, name string) {
	errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
		WithField(name).
		WithDetails(name + " must be a positive integer")
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
}
