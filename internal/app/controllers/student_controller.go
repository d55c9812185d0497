package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/app/services"
	"github.com/yigit/hostelhub/internal/middleware"
)

// StudentController handles admission, moves and departures
type StudentController struct {
	studentService *services.StudentService
	paymentService *services.PaymentService
	authz          Authorizer
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService *services.StudentService, paymentService *services.PaymentService, authz Authorizer) *StudentController {
	return &StudentController{
		studentService: studentService,
		paymentService: paymentService,
		authz:          authz,
	}
}

// Admit admits a student into a bed
// @Summary Admit a student
// @Description Creates the student's account and record, assigns the bed and raises the admission invoice.
// @Description If a later step fails the earlier ones are undone and the response carries the failed step.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AdmitStudentRequest true "Student profile and placement"
// @Success 201 {object} dto.APIResponse{data=dto.AdmissionResponse} "Student admitted"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Hostel or room not found"
// @Failure 409 {object} dto.ErrorResponse "Room full or bed taken"
// @Failure 500 {object} dto.ErrorResponse "Admission rolled back"
// @Router /students [post]
func (c *StudentController) Admit(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}

	var req dto.AdmitStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, req.HostelID) }) {
		return
	}

	resp, err := c.studentService.Admit(ctx.Request.Context(), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, resp, "Student admitted")
}

// ListStudents lists a hostel's students
// @Summary List students of a hostel
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Hostel ID" Format(int64) minimum(1)
// @Param status query string false "Status filter" Enums(ACTIVE, LEFT, EXPELLED)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.StudentListResponse} "Students retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Hostel not found"
// @Router /hostels/{id}/students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	hostelID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var filter dto.StudentFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	filter.HostelID = hostelID
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessHostel(rc, caller, hostelID) }) {
		return
	}

	list, err := c.studentService.ListStudents(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, list, "")
}

// GetStudent returns one student
// @Summary Get a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student retrieved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessStudent(rc, caller, studentID) }) {
		return
	}

	student, err := c.studentService.GetStudent(ctx.Request.Context(), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, student, "")
}

// Move relocates a student to another bed in the same hostel
// @Summary Move a student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID" Format(int64) minimum(1)
// @Param request body dto.MoveStudentRequest true "Target bed"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student moved"
// @Failure 400 {object} dto.ErrorResponse "Invalid bed or room outside the hostel"
// @Failure 404 {object} dto.ErrorResponse "Student or room not found"
// @Failure 409 {object} dto.ErrorResponse "Room full, bed taken or student inactive"
// @Router /students/{id}/move [post]
func (c *StudentController) Move(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.MoveStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessStudent(rc, caller, studentID) }) {
		return
	}

	student, err := c.studentService.Move(ctx.Request.Context(), studentID, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, student, "Student moved")
}

// Depart ends a student's residency
// @Summary Remove a student
// @Description Managers mark the student as LEFT and keep the record; admins and owners delete it with the account.
// @Description The bed is released in both cases.
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student marked as left"
// @Success 204 "Student deleted"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [delete]
func (c *StudentController) Depart(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessStudent(rc, caller, studentID) }) {
		return
	}

	student, err := c.studentService.Depart(ctx.Request.Context(), studentID, caller.Role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if student == nil {
		ctx.Status(http.StatusNoContent)
		return
	}
	respond(ctx, http.StatusOK, student, "Student marked as left")
}

// ListPayments lists a student's invoices
// @Summary List a student's payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID" Format(int64) minimum(1)
// @Param status query string false "Status filter" Enums(UNPAID, PENDING, COMPLETED, OVERDUE)
// @Param month query int false "Billing month"
// @Param year query int false "Billing year"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaymentListResponse} "Payments retrieved"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/payments [get]
func (c *StudentController) ListPayments(ctx *gin.Context) {
	caller, ok := actor(ctx)
	if !ok {
		return
	}
	studentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var filter dto.PaymentFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		middleware.RespondValidationError(ctx, err)
		return
	}
	filter.StudentID = studentID
	if !authorize(ctx, func(rc context.Context) error { return c.authz.CanAccessStudent(rc, caller, studentID) }) {
		return
	}

	list, err := c.paymentService.ListPayments(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, list, "")
}
