package domain

import (
	"database/sql"
	"time"
)

// 报告状态
const (
	ReportPending    = "pending"
	ReportInProgress = "in_progress"
	ReportReady      = "ready"
	ReportDelivered  = "delivered"
	ReportExpired    = "expired"
)

var reportStatusDisplay = map[string]string{
	ReportPending:    "Pending",
	ReportInProgress: "In Progress",
	ReportReady:      "Ready",
	ReportDelivered:  "Delivered",
	ReportExpired:    "Expired",
}

// ValidReportStatus 是否为已知报告状态
func ValidReportStatus(s string) bool {
	_, ok := reportStatusDisplay[s]
	return ok
}

// ReportStatusDisplay 用户可见的报告状态文案
func ReportStatusDisplay(s string) string {
	if d, ok := reportStatusDisplay[s]; ok {
		return d
	}
	return s
}

// 指标参数状态
const (
	ParamNormal   = "normal"
	ParamHigh     = "high"
	ParamLow      = "low"
	ParamCritical = "critical"
)

// Report 检测报告（对应 reports 表）
// 仅当 Status == ready 且 DownloadURL 存在时可下载
type Report struct {
	ReportID    string         `db:"report_id"`
	OrderID     string         `db:"order_id"`
	UserID      string         `db:"user_id"`
	PatientName string         `db:"patient_name"`
	Tests       []ReportTest
	Status      string         `db:"status"`
	GeneratedAt sql.NullTime   `db:"generated_at"`
	DownloadURL sql.NullString `db:"download_url"`
	ValidUntil  sql.NullTime   `db:"valid_until"`
	VerifiedBy  sql.NullString `db:"verified_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Downloadable 报告是否可下载
func (r Report) Downloadable() bool {
	return r.Status == ReportReady && r.DownloadURL.Valid && r.DownloadURL.String != ""
}

// Expired 报告是否已过有效期
func (r Report) Expired(now time.Time) bool {
	return r.ValidUntil.Valid && now.After(r.ValidUntil.Time)
}

// ReportTest 报告内单个检测项目的结果
type ReportTest struct {
	TestID         string `db:"test_id"`
	TestName       string `db:"test_name"`
	Parameters     []ReportParameter
	Interpretation string `db:"interpretation"`
}

// ReportParameter 单个测量值及其参考范围判定
type ReportParameter struct {
	Name           string `db:"name"`
	Value          string `db:"value"`
	Unit           string `db:"unit"`
	ReferenceRange string `db:"reference_range"`
	Status         string `db:"status"` // normal, high, low, critical
	Note           string `db:"note"`
}

// ReportDownload 限时下载描述符（默认签发后 24 小时过期）
type ReportDownload struct {
	ReportID    string
	Filename    string
	FileSize    int64
	DownloadURL string
	ExpiresAt   time.Time
}
