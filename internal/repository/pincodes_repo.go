package repository

import (
	"context"
	"errors"

	"medtest-data/internal/domain"
)

// ErrDuplicate 创建的 pincode 已存在
var ErrDuplicate = errors.New("pincode already exists")

// PincodesRepository 可服务 pincode 静态表Repository接口
type PincodesRepository interface {
	// GetPincode 精确查表；不存在返回 sql.ErrNoRows
	GetPincode(ctx context.Context, pincode string) (*domain.PincodeInfo, error)
	ListServiceable(ctx context.Context) ([]*domain.PincodeInfo, error)
	ListAll(ctx context.Context) ([]*domain.PincodeInfo, error)
	// 大小写不敏感子串匹配，只返回可服务条目
	SearchByCity(ctx context.Context, city string) ([]*domain.PincodeInfo, error)
	SearchByState(ctx context.Context, state string) ([]*domain.PincodeInfo, error)
	CreatePincode(ctx context.Context, info *domain.PincodeInfo) error
	UpdatePincode(ctx context.Context, pincode string, info *domain.PincodeInfo) error
}
