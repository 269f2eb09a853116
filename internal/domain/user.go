package domain

import (
	"database/sql"
	"time"
)

// 角色常量：所有管理操作由 staff/admin 角色把关
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Actor 每次调用由认证协作方提供的调用者身份
// 服务层不接受请求体中自报的角色
type Actor struct {
	UserID string
	Role   string
}

// IsAuthenticated 是否已登录
func (a Actor) IsAuthenticated() bool { return a.UserID != "" }

// HasRole 是否持有指定角色
func (a Actor) HasRole(role string) bool { return a.Role == role }

// HasAnyRole 是否持有任一指定角色
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// IsStaff 管理操作的统一判断（staff 或 admin）
func (a Actor) IsStaff() bool { return a.HasAnyRole(RoleStaff, RoleAdmin) }

// User 用户领域模型（对应 users 表）
// 注册/首次登录时创建，资料编辑时更新，从不硬删除
type User struct {
	UserID       string         `db:"user_id"`
	Email        string         `db:"email"`
	PasswordHash []byte         `db:"password_hash"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Phone        sql.NullString `db:"phone"`
	Role         string         `db:"role"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// Address 用户收样地址（对应 addresses 表）
// IsDefault 互斥：同一用户设置新默认地址时必须在同一事务内清除其它默认标记
type Address struct {
	AddressID    string         `db:"address_id"`
	UserID       string         `db:"user_id"`
	Type         string         `db:"type"` // home, work, other
	AddressLine1 string         `db:"address_line1"`
	AddressLine2 sql.NullString `db:"address_line2"`
	Landmark     sql.NullString `db:"landmark"`
	City         string         `db:"city"`
	State        string         `db:"state"`
	Pincode      string         `db:"pincode"`
	IsDefault    bool           `db:"is_default"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}
