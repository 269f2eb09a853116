package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
)

// AddressService 用户收样地址服务接口
type AddressService interface {
	ListAddresses(ctx context.Context, actor domain.Actor) ([]*domain.Address, error)
	CreateAddress(ctx context.Context, actor domain.Actor, req AddressRequest) (string, error)
	UpdateAddress(ctx context.Context, actor domain.Actor, addressID string, req AddressRequest) error
	DeleteAddress(ctx context.Context, actor domain.Actor, addressID string) error
	SetDefault(ctx context.Context, actor domain.Actor, addressID string) error
}

type addressService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

// NewAddressService 创建 AddressService 实例
func NewAddressService(usersRepo repository.UsersRepository, logger *zap.Logger) AddressService {
	return &addressService{
		usersRepo: usersRepo,
		logger:    logger,
	}
}

// AddressRequest 地址创建/更新请求
type AddressRequest struct {
	Type         string `json:"type"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	Landmark     string `json:"landmark"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	IsDefault    bool   `json:"is_default"`
}

func (s *addressService) ListAddresses(ctx context.Context, actor domain.Actor) ([]*domain.Address, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}
	out, err := s.usersRepo.ListAddresses(ctx, actor.UserID)
	if err != nil {
		return nil, domain.NewServiceError("list addresses", err)
	}
	return out, nil
}

func (s *addressService) CreateAddress(ctx context.Context, actor domain.Actor, req AddressRequest) (string, error) {
	if !actor.IsAuthenticated() {
		return "", domain.NewAuthorizationError("authentication required")
	}
	if err := validateAddress(req); err != nil {
		return "", err
	}
	addr := addressOf(actor.UserID, req)
	id, err := s.usersRepo.CreateAddress(ctx, addr)
	if err != nil {
		return "", domain.NewServiceError("create address", err)
	}
	return id, nil
}

func (s *addressService) UpdateAddress(ctx context.Context, actor domain.Actor, addressID string, req AddressRequest) error {
	if !actor.IsAuthenticated() {
		return domain.NewAuthorizationError("authentication required")
	}
	if err := validateAddress(req); err != nil {
		return err
	}
	if err := s.ownAddress(ctx, actor, addressID); err != nil {
		return err
	}
	if err := s.usersRepo.UpdateAddress(ctx, addressID, addressOf(actor.UserID, req)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("address")
		}
		return domain.NewServiceError("update address", err)
	}
	return nil
}

func (s *addressService) DeleteAddress(ctx context.Context, actor domain.Actor, addressID string) error {
	if !actor.IsAuthenticated() {
		return domain.NewAuthorizationError("authentication required")
	}
	if err := s.usersRepo.DeleteAddress(ctx, actor.UserID, addressID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("address")
		}
		return domain.NewServiceError("delete address", err)
	}
	return nil
}

// SetDefault 默认地址互斥切换由Repository单事务保证
func (s *addressService) SetDefault(ctx context.Context, actor domain.Actor, addressID string) error {
	if !actor.IsAuthenticated() {
		return domain.NewAuthorizationError("authentication required")
	}
	if err := s.usersRepo.SetDefaultAddress(ctx, actor.UserID, addressID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("address")
		}
		return domain.NewServiceError("set default address", err)
	}
	return nil
}

// ownAddress 归属校验：他人地址表现为 not found
func (s *addressService) ownAddress(ctx context.Context, actor domain.Actor, addressID string) error {
	addr, err := s.usersRepo.GetAddress(ctx, addressID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("address")
		}
		return domain.NewServiceError("get address", err)
	}
	if addr.UserID != actor.UserID {
		return domain.NewNotFoundError("address")
	}
	return nil
}

func validateAddress(req AddressRequest) error {
	if req.AddressLine1 == "" {
		return domain.NewValidationError("address_line1", "address line is required")
	}
	if req.City == "" || req.State == "" {
		return domain.NewValidationError("city", "city and state are required")
	}
	if !validPincode(req.Pincode) {
		return domain.NewValidationError("pincode", "pincode must be exactly 6 digits")
	}
	return nil
}

func addressOf(userID string, req AddressRequest) *domain.Address {
	addrType := req.Type
	if addrType == "" {
		addrType = "home"
	}
	return &domain.Address{
		UserID:       userID,
		Type:         addrType,
		AddressLine1: req.AddressLine1,
		AddressLine2: sql.NullString{String: req.AddressLine2, Valid: req.AddressLine2 != ""},
		Landmark:     sql.NullString{String: req.Landmark, Valid: req.Landmark != ""},
		City:         req.City,
		State:        req.State,
		Pincode:      req.Pincode,
		IsDefault:    req.IsDefault,
	}
}
