package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medtest-data/internal/domain"
	"medtest-data/internal/repository"
	"medtest-data/internal/store"
)

// 会话有效期
const sessionTTL = 7 * 24 * time.Hour

// AuthService 认证与账户服务接口
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, token string) error
	// Resolve 由 token 还原调用者身份；无效 token 返回零值 Actor，不报错
	Resolve(ctx context.Context, token string) domain.Actor

	GetProfile(ctx context.Context, actor domain.Actor) (*UserProfile, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, req UpdateProfileRequest) (*UserProfile, error)
}

type authService struct {
	usersRepo repository.UsersRepository
	sessions  store.KV
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(usersRepo repository.UsersRepository, sessions store.KV, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo: usersRepo,
		sessions:  sessions,
		logger:    logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user"`
}

// UserProfile 对外暴露的用户资料（不含密码散列）
type UserProfile struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
}

// UpdateProfileRequest 资料更新请求；nil 字段不修改
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// sessionRecord KV 中的会话负载
type sessionRecord struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ============================================
// 实现
// ============================================

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email", "valid email is required")
	}
	if len(req.Password) < 6 {
		return nil, domain.NewValidationError("password", "password must be at least 6 characters")
	}

	if _, err := s.usersRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, domain.NewValidationError("email", "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewServiceError("check existing user", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hashPassword(req.Password),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        sql.NullString{String: req.Phone, Valid: req.Phone != ""},
		Role:         domain.RoleCustomer,
		IsActive:     true,
	}
	userID, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, domain.NewServiceError("create user", err)
	}
	user.UserID = userID

	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", userID))
	return &AuthResponse{Token: token, User: profileOf(user)}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.usersRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 不区分"账号不存在"与"密码错误"
			return nil, domain.NewValidationError("credentials", "invalid email or password")
		}
		return nil, domain.NewServiceError("lookup user", err)
	}
	if !user.IsActive {
		return nil, domain.NewAuthorizationError("account is disabled")
	}
	if hex.EncodeToString(user.PasswordHash) != hex.EncodeToString(hashPassword(req.Password)) {
		return nil, domain.NewValidationError("credentials", "invalid email or password")
	}

	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.UserID))
	return &AuthResponse{Token: token, User: profileOf(user)}, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Del(ctx, sessionKey(token))
}

func (s *authService) Resolve(ctx context.Context, token string) domain.Actor {
	if token == "" {
		return domain.Actor{}
	}
	raw, err := s.sessions.Get(ctx, sessionKey(token))
	if err != nil {
		return domain.Actor{}
	}
	var rec sessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return domain.Actor{}
	}
	return domain.Actor{UserID: rec.UserID, Role: rec.Role}
}

func (s *authService) GetProfile(ctx context.Context, actor domain.Actor) (*UserProfile, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}
	user, err := s.usersRepo.GetUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("user")
		}
		return nil, domain.NewServiceError("get user", err)
	}
	return profileOf(user), nil
}

func (s *authService) UpdateProfile(ctx context.Context, actor domain.Actor, req UpdateProfileRequest) (*UserProfile, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.NewAuthorizationError("authentication required")
	}
	user, err := s.usersRepo.GetUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("user")
		}
		return nil, domain.NewServiceError("get user", err)
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = sql.NullString{String: *req.Phone, Valid: *req.Phone != ""}
	}
	if err := s.usersRepo.UpdateUser(ctx, actor.UserID, user); err != nil {
		return nil, domain.NewServiceError("update user", err)
	}
	return profileOf(user), nil
}

func (s *authService) issueSession(ctx context.Context, user *domain.User) (string, error) {
	token := uuid.NewString()
	payload, _ := json.Marshal(sessionRecord{UserID: user.UserID, Role: user.Role})
	if err := s.sessions.Set(ctx, sessionKey(token), string(payload), sessionTTL); err != nil {
		return "", domain.NewServiceError("store session", err)
	}
	return token, nil
}

func sessionKey(token string) string { return "session:" + token }

func hashPassword(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return sum[:]
}

func profileOf(u *domain.User) *UserProfile {
	return &UserProfile{
		UserID:    u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone.String,
		Role:      u.Role,
	}
}
