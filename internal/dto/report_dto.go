package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	TotalUsers    int64            `json:"total_users"`
	TotalProducts int64            `json:"total_products"`
	TotalAdmins   int64            `json:"total_admins"`
	ActiveUsers   int64            `json:"active_users"`
	DeletedUsers  int64            `json:"deleted_users"`
	UsersByRole   map[string]int64 `json:"users_by_role"`
}

type HourBucket struct {
	Hour  string `json:"hour"` // "00:00" … "23:00"
	Count int    `json:"count"`
}

type OwnerAggregate struct {
	UserID       uint            `json:"user_id"`
	Username     string          `json:"username"`
	ProductCount int64           `json:"product_count"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

type ChartsResponse struct {
	ProductsByHour []HourBucket     `json:"products_by_hour"`
	TopByCount     []OwnerAggregate `json:"top_by_count"`
	TopByValue     []OwnerAggregate `json:"top_by_value"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type RuntimeStats struct {
	StartTime      time.Time `json:"start_time"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	Uptime         string    `json:"uptime"`
	Hostname       string    `json:"hostname"`
	PID            int       `json:"pid"`
	OS             string    `json:"os"`
	Arch           string    `json:"arch"`
	GoVersion      string    `json:"go_version"`
	NumCPU         int       `json:"num_cpu"`
	GOMAXPROCS     int       `json:"gomaxprocs"`
	Goroutines     int       `json:"goroutines"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	SysBytes       uint64    `json:"sys_bytes"`
	NumGC          uint32    `json:"num_gc"`
	TotalRequests  int64     `json:"total_requests"`
}

type DatabaseStats struct {
	Users       int64  `json:"users"`
	Products    int64  `json:"products"`
	SizeBytes   int64  `json:"size_bytes"`
	LastBackup  string `json:"last_backup,omitempty"`
	BackupCount int    `json:"backup_count"`
}

type ServerStatsResponse struct {
	Runtime  RuntimeStats  `json:"runtime"`
	Database DatabaseStats `json:"database"`
}
