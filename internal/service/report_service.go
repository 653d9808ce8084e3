package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"storekeep/internal/apierror"
	"storekeep/internal/backup"
	"storekeep/internal/dto"
	"storekeep/internal/infra"
	"storekeep/internal/model"
	"storekeep/internal/monitor"
	"storekeep/internal/policy"
	"storekeep/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	topByCountLimit = 10
	topByValueLimit = 15
)

// ReportService produces point-in-time admin statistics. Nothing is cached.
type ReportService interface {
	Dashboard(ctx context.Context, actor policy.Actor) (*dto.DashboardResponse, error)
	Charts(ctx context.Context, actor policy.Actor) (*dto.ChartsResponse, error)
	ServerStats(ctx context.Context, actor policy.Actor) (*dto.ServerStatsResponse, error)
	ExportPDF(ctx context.Context, actor policy.Actor, w io.Writer) error
}

type reportService struct {
	reports repository.ReportRepository
	monitor *monitor.Monitor
	backups backup.Tool
	now     func() time.Time
}

// NewReportService wires the reporting queries. backups may be nil, in which
// case server stats carry no backup information.
func NewReportService(reports repository.ReportRepository, mon *monitor.Monitor, backups backup.Tool) ReportService {
	return &reportService{
		reports: reports,
		monitor: mon,
		backups: backups,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *reportService) Dashboard(ctx context.Context, actor policy.Actor) (*dto.DashboardResponse, error) {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return nil, err
	}
	return s.dashboard(ctx)
}

func (s *reportService) dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	var (
		resp = &dto.DashboardResponse{UsersByRole: map[string]int64{}}
		err  error
	)
	if resp.TotalUsers, err = s.reports.CountUsers(ctx); err != nil {
		return nil, apierror.Store("count users", err)
	}
	if resp.TotalProducts, err = s.reports.CountProducts(ctx); err != nil {
		return nil, apierror.Store("count products", err)
	}
	if resp.ActiveUsers, err = s.reports.CountActiveUsers(ctx); err != nil {
		return nil, apierror.Store("count active users", err)
	}
	if resp.DeletedUsers, err = s.reports.CountDeletedUsers(ctx); err != nil {
		return nil, apierror.Store("count deleted users", err)
	}
	roles, err := s.reports.CountUsersByRole(ctx)
	if err != nil {
		return nil, apierror.Store("count roles", err)
	}
	for _, rc := range roles {
		resp.UsersByRole[rc.Role.String()] = rc.Count
		if rc.Role != model.RoleUser {
			resp.TotalAdmins += rc.Count
		}
	}
	return resp, nil
}

func (s *reportService) Charts(ctx context.Context, actor policy.Actor) (*dto.ChartsResponse, error) {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return nil, err
	}
	return s.charts(ctx)
}

func (s *reportService) charts(ctx context.Context) (*dto.ChartsResponse, error) {
	now := s.now()
	times, err := s.reports.ProductCreationTimes(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, apierror.Store("product creation times", err)
	}
	buckets := make([]dto.HourBucket, 24)
	for h := range buckets {
		buckets[h].Hour = fmt.Sprintf("%02d:00", h)
	}
	for _, t := range times {
		buckets[t.UTC().Hour()].Count++
	}

	byCount, err := s.reports.TopUsersByProductCount(ctx, topByCountLimit)
	if err != nil {
		return nil, apierror.Store("top users by count", err)
	}
	byValue, err := s.reports.TopUsersByValue(ctx, topByValueLimit)
	if err != nil {
		return nil, apierror.Store("top users by value", err)
	}
	return &dto.ChartsResponse{
		ProductsByHour: buckets,
		TopByCount:     toOwnerAggregates(byCount),
		TopByValue:     toOwnerAggregates(byValue),
		GeneratedAt:    now,
	}, nil
}

func (s *reportService) ServerStats(ctx context.Context, actor policy.Actor) (*dto.ServerStatsResponse, error) {
	if err := policy.Authorize(actor, policy.ViewServerStats, policy.Target{}); err != nil {
		return nil, err
	}
	snap := s.monitor.Snapshot()
	resp := &dto.ServerStatsResponse{
		Runtime: dto.RuntimeStats{
			StartTime:      snap.StartTime,
			UptimeSeconds:  int64(snap.Uptime.Seconds()),
			Uptime:         snap.Uptime.Truncate(time.Second).String(),
			Hostname:       snap.Hostname,
			PID:            snap.PID,
			OS:             snap.OS,
			Arch:           snap.Arch,
			GoVersion:      snap.GoVersion,
			NumCPU:         snap.NumCPU,
			GOMAXPROCS:     snap.GOMAXPROCS,
			Goroutines:     snap.Goroutines,
			HeapAllocBytes: snap.HeapAllocBytes,
			SysBytes:       snap.SysBytes,
			NumGC:          snap.NumGC,
			TotalRequests:  snap.TotalRequests,
		},
	}

	var err error
	if resp.Database.Users, err = s.reports.CountUsers(ctx); err != nil {
		return nil, apierror.Store("count users", err)
	}
	if resp.Database.Products, err = s.reports.CountProducts(ctx); err != nil {
		return nil, apierror.Store("count products", err)
	}
	if resp.Database.SizeBytes, err = s.reports.DatabaseSize(ctx); err != nil {
		log.Warn().Err(err).Msg("server stats: database size unavailable")
	}
	if s.backups != nil {
		list, err := s.backups.ListBackups()
		if err != nil {
			log.Warn().Err(err).Msg("server stats: backup list unavailable")
		} else {
			resp.Database.BackupCount = len(list)
			if len(list) > 0 {
				resp.Database.LastBackup = list[0].Filename
			}
		}
	}
	return resp, nil
}

func (s *reportService) ExportPDF(ctx context.Context, actor policy.Actor, w io.Writer) error {
	if err := policy.Authorize(actor, policy.ViewAdmin, policy.Target{}); err != nil {
		return err
	}
	dash, err := s.dashboard(ctx)
	if err != nil {
		return err
	}
	charts, err := s.charts(ctx)
	if err != nil {
		return err
	}
	if err := infra.WriteReportPDF(w, dash, charts); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func toOwnerAggregates(rows []repository.UserAggregate) []dto.OwnerAggregate {
	out := make([]dto.OwnerAggregate, len(rows))
	for i, r := range rows {
		out[i] = dto.OwnerAggregate{
			UserID:       r.UserID,
			Username:     r.Username,
			ProductCount: r.ProductCount,
			TotalValue:   r.TotalValue.Round(2),
		}
	}
	return out
}
