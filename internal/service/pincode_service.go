package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
	"medtest-data/internal/store"
)

// 查表结果缓存时长
const pincodeCacheTTL = 10 * time.Minute

// PincodeService 可服务区域服务接口
type PincodeService interface {
	// CheckServiceability 6 位数字校验 -> 查表
	// 格式不合法返回 ValidationError；表中不存在返回 NotFoundError；
	// 存在但不可服务是成功结果（IsServiceable=false），三种结局调用方必须能区分
	CheckServiceability(ctx context.Context, pincode string) (*domain.PincodeInfo, error)
	ListServiceable(ctx context.Context) ([]*domain.PincodeInfo, error)
	SearchByCity(ctx context.Context, city string) ([]*domain.PincodeInfo, error)
	SearchByState(ctx context.Context, state string) ([]*domain.PincodeInfo, error)

	// 管理操作（staff/admin）
	ListAll(ctx context.Context, actor domain.Actor) ([]*domain.PincodeInfo, error)
	AddPincode(ctx context.Context, actor domain.Actor, info *domain.PincodeInfo) error
	UpdatePincode(ctx context.Context, actor domain.Actor, pincode string, info *domain.PincodeInfo) error
}

type pincodeService struct {
	pincodesRepo repository.PincodesRepository
	cache        store.KV
	logger       *zap.Logger
}

// NewPincodeService 创建 PincodeService 实例
// cache 为 nil 时不缓存
func NewPincodeService(pincodesRepo repository.PincodesRepository, cache store.KV, logger *zap.Logger) PincodeService {
	return &pincodeService{
		pincodesRepo: pincodesRepo,
		cache:        cache,
		logger:       logger,
	}
}

func (s *pincodeService) CheckServiceability(ctx context.Context, pincode string) (*domain.PincodeInfo, error) {
	pincode = strings.TrimSpace(pincode)
	if !validPincode(pincode) {
		return nil, domain.NewValidationError("pincode", "pincode must be exactly 6 digits")
	}

	if info := s.cacheGet(ctx, pincode); info != nil {
		return info, nil
	}

	info, err := s.pincodesRepo.GetPincode(ctx, pincode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("pincode")
		}
		return nil, domain.NewServiceError("lookup pincode", err)
	}
	s.cachePut(ctx, info)
	return info, nil
}

func (s *pincodeService) ListServiceable(ctx context.Context) ([]*domain.PincodeInfo, error) {
	out, err := s.pincodesRepo.ListServiceable(ctx)
	if err != nil {
		return nil, domain.NewServiceError("list pincodes", err)
	}
	return out, nil
}

func (s *pincodeService) SearchByCity(ctx context.Context, city string) ([]*domain.PincodeInfo, error) {
	out, err := s.pincodesRepo.SearchByCity(ctx, strings.TrimSpace(city))
	if err != nil {
		return nil, domain.NewServiceError("search pincodes by city", err)
	}
	return out, nil
}

func (s *pincodeService) SearchByState(ctx context.Context, state string) ([]*domain.PincodeInfo, error) {
	out, err := s.pincodesRepo.SearchByState(ctx, strings.TrimSpace(state))
	if err != nil {
		return nil, domain.NewServiceError("search pincodes by state", err)
	}
	return out, nil
}

func (s *pincodeService) ListAll(ctx context.Context, actor domain.Actor) ([]*domain.PincodeInfo, error) {
	if !actor.IsStaff() {
		return nil, domain.NewAuthorizationError("staff role required")
	}
	out, err := s.pincodesRepo.ListAll(ctx)
	if err != nil {
		return nil, domain.NewServiceError("list pincodes", err)
	}
	return out, nil
}

func (s *pincodeService) AddPincode(ctx context.Context, actor domain.Actor, info *domain.PincodeInfo) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if !validPincode(info.Pincode) {
		return domain.NewValidationError("pincode", "pincode must be exactly 6 digits")
	}
	if info.City == "" || info.State == "" {
		return domain.NewValidationError("city", "city and state are required")
	}
	if err := s.pincodesRepo.CreatePincode(ctx, info); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.NewValidationError("pincode", "pincode already exists")
		}
		return domain.NewServiceError("create pincode", err)
	}
	s.logger.Info("pincode added",
		zap.String("pincode", info.Pincode),
		zap.Bool("serviceable", info.IsServiceable))
	return nil
}

func (s *pincodeService) UpdatePincode(ctx context.Context, actor domain.Actor, pincode string, info *domain.PincodeInfo) error {
	if !actor.IsStaff() {
		return domain.NewAuthorizationError("staff role required")
	}
	if err := s.pincodesRepo.UpdatePincode(ctx, pincode, info); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError("pincode")
		}
		return domain.NewServiceError("update pincode", err)
	}
	s.cacheDrop(ctx, pincode)
	return nil
}

// ============================================
// 缓存
// ============================================

func (s *pincodeService) cacheGet(ctx context.Context, pincode string) *domain.PincodeInfo {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, pincodeCacheKey(pincode))
	if err != nil {
		return nil
	}
	var info domain.PincodeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil
	}
	return &info
}

func (s *pincodeService) cachePut(ctx context.Context, info *domain.PincodeInfo) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, pincodeCacheKey(info.Pincode), string(payload), pincodeCacheTTL); err != nil {
		s.logger.Warn("failed to cache pincode", zap.Error(err))
	}
}

func (s *pincodeService) cacheDrop(ctx context.Context, pincode string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, pincodeCacheKey(pincode))
}

func pincodeCacheKey(pincode string) string { return "pincode:" + pincode }

func validPincode(pincode string) bool {
	if len(pincode) != 6 {
		return false
	}
	for _, c := range pincode {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
