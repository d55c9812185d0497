package dto

import "github.com/yigit/hostelhub/internal/app/models"

// AdmitStudentRequest is the validated admission payload: full profile plus placement
type AdmitStudentRequest struct {
	HostelID        int64  `json:"hostelId" binding:"required,min=1"`
	RoomID          int64  `json:"roomId" binding:"required,min=1"`
	BedNumber       string `json:"bedNumber" binding:"required,bednumber"`
	FullName        string `json:"fullName" binding:"required,min=2,max=100"`
	CNIC            string `json:"cnic" binding:"required,cnic"`
	Phone           string `json:"phone" binding:"omitempty,phone"`
	GuardianName    string `json:"guardianName" binding:"max=100"`
	GuardianPhone   string `json:"guardianPhone" binding:"omitempty,phone"`
	Institute       string `json:"institute" binding:"max=120"`
	MonthlyFee      int64  `json:"monthlyFee" binding:"min=0"`
	SecurityDeposit int64  `json:"securityDeposit" binding:"min=0"`
	// Password defaults to the CNIC digits when empty
	Password string `json:"password" binding:"omitempty,min=8"`
}

// MoveStudentRequest moves a student to another bed. The student ID comes from the path.
type MoveStudentRequest struct {
	TargetRoomID    int64  `json:"targetRoomId" binding:"required,min=1"`
	TargetBedNumber string `json:"targetBedNumber" binding:"required,bednumber"`
}

// StudentFilter narrows a hostel's student list
type StudentFilter struct {
	HostelID int64                `form:"-"`
	Status   models.StudentStatus `form:"status" binding:"omitempty,oneof=ACTIVE LEFT EXPELLED"`
	Page     int                  `form:"page,default=1" binding:"min=1"`
	PageSize int                  `form:"pageSize,default=10" binding:"min=1,max=100"`
}

// AdmissionResponse reports everything an admission created
type AdmissionResponse struct {
	Student        *models.Student `json:"student"`
	Username       string          `json:"username"`
	InitialInvoice *models.Payment `json:"initialInvoice"`
}

// StudentListResponse is a page of students
type StudentListResponse struct {
	Students   []*models.Student `json:"students"`
	Pagination PaginationInfo    `json:"pagination"`
}
