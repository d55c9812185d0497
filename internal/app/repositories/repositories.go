package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	HostelRepository       *HostelRepository
	RoomRepository         *RoomRepository
	StudentRepository      *StudentRepository
	PaymentRepository      *PaymentRepository
	UserRepository         *UserRepository
	SubscriptionRepository *SubscriptionRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		HostelRepository:       NewHostelRepository(db),
		RoomRepository:         NewRoomRepository(db),
		StudentRepository:      NewStudentRepository(db),
		PaymentRepository:      NewPaymentRepository(db),
		UserRepository:         NewUserRepository(db),
		SubscriptionRepository: NewSubscriptionRepository(db),
	}
}
