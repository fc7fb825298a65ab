package service

import (
	"context"
	"time"

	"parking_lot/internal/domain"
	"parking_lot/internal/repository"
)

// StatsService tính số liệu cho dashboard admin.
type StatsService struct {
	store repository.Store
}

func NewStatsService(store repository.Store) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) GetStats(ctx context.Context) (*domain.Stats, error) {
	totalSlots, err := s.store.Slots().Count(ctx)
	if err != nil {
		return nil, err
	}
	occupiedSlots, err := s.store.Slots().CountByStatus(ctx, domain.SlotOccupied)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	parksToday, err := s.store.Logs().CountSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	avgDuration, err := s.store.Logs().AvgDurationMinutes(ctx)
	if err != nil {
		return nil, err
	}

	chart, err := s.buildChart(ctx, now)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		TotalSlots:         totalSlots,
		OccupiedSlots:      occupiedSlots,
		NonOccupiedSlots:   totalSlots - occupiedSlots,
		ParksToday:         parksToday,
		AvgParkingDuration: avgDuration,
		ChartData:          *chart,
	}, nil
}

// buildChart dựng biểu đồ 7 ngày gần nhất: số biển số duy nhất mỗi ngày,
// các ngày không có xe vẫn xuất hiện với giá trị 0.
func (s *StatsService) buildChart(ctx context.Context, now time.Time) (*domain.ChartData, error) {
	since := now.AddDate(0, 0, -6)
	since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.UTC)

	perDay, err := s.store.Logs().DailyUniqueVehicles(ctx, since)
	if err != nil {
		return nil, err
	}

	chart := &domain.ChartData{
		Labels: make([]string, 0, 7),
		Data:   make([]int, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day := since.AddDate(0, 0, i)
		chart.Labels = append(chart.Labels, day.Format("02/01"))
		chart.Data = append(chart.Data, perDay[day.Format("2006-01-02")])
	}
	return chart, nil
}
