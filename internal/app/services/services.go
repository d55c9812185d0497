// Package services holds the occupancy and billing core plus the CRUD services around it.
//
// Services defined in this package:
// - CapacityLedger: owns room.occupiedBeds
// - OccupancyService: assigns, moves and releases beds
// - BillingService: monthly rent runs, initial invoices, charges and overdue marking
// - PaymentService: the payment state machine
// - StudentService: admission and departure workflows
// - HostelService: hostels, rooms and room views
// - SubscriptionService: platform subscription invoices
// - AuthService: login
package services
