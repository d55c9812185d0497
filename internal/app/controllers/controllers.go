// Package controllers handles HTTP request handling
package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	appAuth "github.com/yigit/hostelhub/internal/app/auth"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/middleware"
)

// Authorizer scopes a request to the hostels and records the caller may touch
type Authorizer interface {
	CanAccessHostel(ctx context.Context, actor appAuth.Actor, hostelID int64) error
	CanAccessRoom(ctx context.Context, actor appAuth.Actor, roomID int64) error
	CanAccessStudent(ctx context.Context, actor appAuth.Actor, studentID int64) error
	CanAccessPayment(ctx context.Context, actor appAuth.Actor, paymentID int64) error
}

// pathID parses a positive int64 path parameter, writing a 400 when it is malformed
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondInvalidID(ctx, name)
		return 0, false
	}
	return id, true
}

// actor returns the authenticated caller, writing a 401 when there is none
func actor(ctx *gin.Context) (appAuth.Actor, bool) {
	a, ok := middleware.ActorFromContext(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return appAuth.Actor{}, false
	}
	return a, true
}

// authorize runs check and writes the error response when it fails
func authorize(ctx *gin.Context, check func(context.Context) error) bool {
	if err := check(ctx.Request.Context()); err != nil {
		middleware.HandleAPIError(ctx, err)
		return false
	}
	return true
}

func respond(ctx *gin.Context, status int, data interface{}, message string) {
	ctx.JSON(status, dto.NewSuccessResponse(data, message))
}
