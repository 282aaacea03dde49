package service

import (
	"context"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
	"github.com/diagnosis/checkin-kiosk/internal/repository"
)

type AuditService interface {
	ListCheckIns(ctx context.Context, limit, offset int) ([]domain.CheckInRecord, error)
	ListBookingCheckIns(ctx context.Context, id domain.BookingID) ([]domain.CheckInRecord, error)
}

type auditService struct {
	checkIns repository.CheckInRepository
}

func NewAuditService(checkIns repository.CheckInRepository) AuditService {
	return &auditService{checkIns: checkIns}
}

func (s *auditService) ListCheckIns(ctx context.Context, limit, offset int) ([]domain.CheckInRecord, error) {
	return s.checkIns.ListRecent(ctx, limit, offset)
}

func (s *auditService) ListBookingCheckIns(ctx context.Context, id domain.BookingID) ([]domain.CheckInRecord, error) {
	return s.checkIns.ListByBooking(ctx, id)
}
