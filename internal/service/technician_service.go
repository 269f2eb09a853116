package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

// TechnicianService 采样技师管理服务接口（全部 staff/admin）
type TechnicianService interface {
	ListTechnicians(ctx context.Context, actor domain.Actor) ([]*domain.Technician, error)
	GetTechnician(ctx context.Context, actor domain.Actor, technicianID string) (*domain.Technician, error)
	// CandidatesForPincode 可派往目标 pincode 且有余量的在岗技师
	CandidatesForPincode(ctx context.Context, actor domain.Actor, pincode string) ([]*domain.Technician, error)
	CreateTechnician(ctx context.Context, actor domain.Actor, tech *domain.Technician) (string, error)
	UpdateTechnician(ctx context.Context, actor domain.Actor, technicianID string, tech *domain.Technician) error
}

type technicianService struct {
	techniciansRepo repository.TechniciansRepository
	logger          *zap.Logger
}

// NewTechnicianService 创建 TechnicianService 实例
func NewTechnicianService(techniciansRepo repository.TechniciansRepository, logger *zap.Logger) TechnicianService {
	return &technicianService{
		techniciansRepo: techniciansRepo,
		logger:          logger,
	}
}

func (s *technicianService) ListTechnicians(ctx context.Context, actor domain.Actor) ([]*domain.Technician, error) {
	if !actor.IsStaff() {
		return nil, domain.NewAuthorizationError("staff role required")
	}
	out, err := s.techniciansRepo.ListTechnicians(ctx, false)
	if err != nil {
		return nil, domain.NewServiceError("list technicians", err)
	}
	return out, nil
}

func (s *technicianService) GetTechnician(ctx context.Context, actor domain.Actor, technicianID string) (*domain.Technician, error) {
	if !actor.IsStaff() {
		return nil, domain.NewAuthorizationError("staff role required")
	}
	tech, err := s.techniciansRepo.GetTechnician(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("technician")
		}
		return nil, domain.NewServiceError("get technician", err)
	}
	return tech, nil
}

func (s *technicianService) CandidatesForPincode(ctx context.Context, actor domain.Actor, pincode string) ([]*domain.Technician, error) {
	if !actor.IsStaff() {
		return nil, domain.NewAuthorizationError("staff role required")
	}
	techs, err := s.techniciansRepo.ListByPincode(ctx, pincode)
	if err != nil {
		return nil, domain.NewServiceError("list technicians by pincode", err)
	}
	out := make([]*domain.Technician, 0, len(techs))
	for _, t := range techs {
		if t.HasCapacity() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *technicianService) CreateTechnician(ctx context.Context, actor domain.Actor, tech *domain.Technician) (string, error) {
	if !actor.IsStaff() {
		return "", domain.NewAuthorizationError("staff role required")
	}
	if tech.Name == "" {
		return "", domain.NewValidationError("name", "name is required")
	}
	if tech.Phone == "" {
		return "", domain.NewValidationError("phone", "phone is required")
	}
	if tech.MaxOrdersPerDay <= 0 {
		tech.MaxOrdersPerDay = 8
	}
	id, err := s.techniciansRepo.CreateTechnician(ctx, tech)
	if err != nil {
		return "", domain.NewServiceError("create technician", err)
	}
	s.logger.Info("technician created", zap.String("technician_id", id), zap.String("name", tech.Name))
	return id, nil
}

func (s *technicianService) UpdateTechnician(ctx context.Context, actor domain.Actor, technicianID string, tech *domain.Technician) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if err := s.techniciansRepo.UpdateTechnician(ctx, technicianID, tech); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("technician")
		}
		return domain.NewServiceError("update technician", err)
	}
	return nil
}
