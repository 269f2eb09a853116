package repository

import (
	"context"

	"medtest-data/internal/domain"
)

// TechniciansRepository 采样技师Repository接口
type TechniciansRepository interface {
	ListTechnicians(ctx context.Context, activeOnly bool) ([]*domain.Technician, error)
	GetTechnician(ctx context.Context, technicianID string) (*domain.Technician, error)
	// ListByPincode 服务 pincode 列表包含目标 pincode 的在岗技师
	ListByPincode(ctx context.Context, pincode string) ([]*domain.Technician, error)
	CreateTechnician(ctx context.Context, tech *domain.Technician) (string, error)
	UpdateTechnician(ctx context.Context, technicianID string, tech *domain.Technician) error
}
