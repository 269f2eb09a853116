package repository

import (
	"context"

	"medtest-data/internal/domain"
)

// UsersRepository 用户与地址Repository接口
// 使用强类型领域模型，不使用map[string]any
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) (string, error)
	UpdateUser(ctx context.Context, userID string, user *domain.User) error

	// 地址管理
	ListAddresses(ctx context.Context, userID string) ([]*domain.Address, error)
	GetAddress(ctx context.Context, addressID string) (*domain.Address, error)
	CreateAddress(ctx context.Context, addr *domain.Address) (string, error)
	UpdateAddress(ctx context.Context, addressID string, addr *domain.Address) error
	DeleteAddress(ctx context.Context, userID, addressID string) error

	// SetDefaultAddress 默认地址互斥切换
	// 清除旧默认 + 设置新默认必须是单个事务，不允许出现可观察的多默认中间态
	SetDefaultAddress(ctx context.Context, userID, addressID string) error
}
