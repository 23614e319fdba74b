// stats.go — агрегатор статистики админ-дашборда.
//
// Все метрики считаются из одного снапшота данных, загруженного в память:
// отчёт консистентен на момент одного вызова. Агрегатор не хранит
// состояния и не кэширует — чистая функция (снапшот, окно) → отчёт.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// DefaultInactiveDays — окно неактивности по умолчанию.
const DefaultInactiveDays = 30

// activeWindowDays — фиксированное окно KPI «активные пользователи».
// Не зависит от параметра inactiveDays.
const activeWindowDays = 30

// inactiveListLimit — сколько неактивных пользователей попадает в отчёт.
const inactiveListLimit = 20

// recentActivityLimit — сколько последних записей журнала попадает в отчёт.
const recentActivityLimit = 10

// Snapshot — срез данных для одного расчёта статистики.
type Snapshot struct {
	Users        []*model.User
	Requests     []*model.AccessRequest
	PriceGroups  int
	AuthEvents   []repository.AuthEvent
	RecentLogs   []*model.UserLog
	Branches     []*model.Branch
	UserBranches []*model.UserBranch
	GroupAccess  []*model.UserGroupAccess
}

// KPISet — сводные показатели дашборда.
type KPISet struct {
	TotalUsers            int `json:"totalUsers"`
	UsersWithAccess       int `json:"usersWithAccess"`
	ActiveUsers30d        int `json:"activeUsers30d"`
	ActiveUsers30dPercent int `json:"activeUsers30dPercent"`
	PendingRequests       int `json:"pendingRequests"`
	ApprovedRequests      int `json:"approvedRequests"`
	RejectedRequests      int `json:"rejectedRequests"`
	TotalRequests         int `json:"totalRequests"`
	RequestsToday         int `json:"requestsToday"`
	PriceGroups           int `json:"priceGroups"`
	InactiveUsers         int `json:"inactiveUsers"`
}

// MonthlyTrend — заявки одного календарного месяца по статусам.
type MonthlyTrend struct {
	Month    string `json:"month"` // YYYY-MM
	Total    int    `json:"total"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Pending  int    `json:"pending"`
}

// BranchSegment — сегмент распределения пользователей по филиалам.
type BranchSegment struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// UrgentTask — операционное предупреждение для дашборда.
type UrgentTask struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Count    int    `json:"count"`
	Severity string `json:"severity"`
	Link     string `json:"link"`
}

// InactiveUser — пользователь с доступом, давно не входивший в портал.
type InactiveUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	Image          *string   `json:"image,omitempty"`
	ShopName       *string   `json:"shop_name,omitempty"`
	LastLogin      time.Time `json:"last_login"`
	DaysSinceLogin int       `json:"days_since_login"`
}

// ActivityEntry — запись ленты последних действий.
type ActivityEntry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	UserName  string          `json:"user_name"`
	UserImage *string         `json:"user_image,omitempty"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DashboardStats — полный отчёт агрегатора.
type DashboardStats struct {
	KPIs                 KPISet           `json:"kpis"`
	RequestMonthlyTrends []*MonthlyTrend  `json:"requestMonthlyTrends"`
	UsersByBranch        []*BranchSegment `json:"usersByBranch"`
	UrgentTasks          []*UrgentTask    `json:"urgentTasks"`
	InactiveUsers        []*InactiveUser  `json:"inactiveUsers"`
	RecentActivity       []*ActivityEntry `json:"recentActivity"`
	PendingRequests      int              `json:"pendingRequests"`
}

// StatsService — сервис статистики дашборда.
type StatsService struct {
	userRepo       repository.UserRepository
	requestRepo    repository.AccessRequestRepository
	groupRepo      repository.PriceGroupRepository
	logRepo        repository.UserLogRepository
	branchRepo     repository.BranchRepository
	userBranchRepo repository.UserBranchRepository
	accessRepo     repository.GroupAccessRepository
	logger         *slog.Logger
}

// NewStatsService создаёт сервис статистики.
func NewStatsService(
	userRepo repository.UserRepository,
	requestRepo repository.AccessRequestRepository,
	groupRepo repository.PriceGroupRepository,
	logRepo repository.UserLogRepository,
	branchRepo repository.BranchRepository,
	userBranchRepo repository.UserBranchRepository,
	accessRepo repository.GroupAccessRepository,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		userRepo:       userRepo,
		requestRepo:    requestRepo,
		groupRepo:      groupRepo,
		logRepo:        logRepo,
		branchRepo:     branchRepo,
		userBranchRepo: userBranchRepo,
		accessRepo:     accessRepo,
		logger:         logger.With(slog.String("component", "stats_service")),
	}
}

// Build загружает снапшот данных и строит полный отчёт дашборда.
// Любая ошибка чтения прерывает весь расчёт — частичных отчётов нет.
func (s *StatsService) Build(ctx context.Context, inactiveDays int) (*DashboardStats, error) {
	if inactiveDays < 1 {
		inactiveDays = DefaultInactiveDays
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	return buildStats(snap, inactiveDays, time.Now()), nil
}

// loadSnapshot загружает все источники данных одного расчёта.
func (s *StatsService) loadSnapshot(ctx context.Context) (*Snapshot, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка пользователей: %w", err)
	}
	requests, err := s.requestRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка заявок: %w", err)
	}
	groupCount, err := s.groupRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт прайс-групп: %w", err)
	}
	authEvents, err := s.logRepo.ListAuthEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка событий входа: %w", err)
	}
	recentLogs, err := s.logRepo.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("загрузка последних действий: %w", err)
	}
	branches, err := s.branchRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка филиалов: %w", err)
	}
	userBranches, err := s.userBranchRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка привязок к филиалам: %w", err)
	}
	access, err := s.accessRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка доступов: %w", err)
	}

	return &Snapshot{
		Users:        users,
		Requests:     requests,
		PriceGroups:  groupCount,
		AuthEvents:   authEvents,
		RecentLogs:   recentLogs,
		Branches:     branches,
		UserBranches: userBranches,
		GroupAccess:  access,
	}, nil
}

// buildStats — чистая функция расчёта отчёта из снапшота.
func buildStats(snap *Snapshot, inactiveDays int, now time.Time) *DashboardStats {
	// Пользователи с доступом хотя бы к одной прайс-группе
	usersWithAccess := make(map[string]bool, len(snap.GroupAccess))
	for _, ga := range snap.GroupAccess {
		usersWithAccess[ga.UserID] = true
	}

	// Последний login/register каждого пользователя
	lastAuth := make(map[string]time.Time, len(snap.AuthEvents))
	for _, ev := range snap.AuthEvents {
		if prev, ok := lastAuth[ev.UserID]; !ok || ev.CreatedAt.After(prev) {
			lastAuth[ev.UserID] = ev.CreatedAt
		}
	}

	// Активные за фиксированные 30 дней (только пользователи с доступом)
	activeThreshold := now.AddDate(0, 0, -activeWindowDays)
	activeUsers := 0
	for userID, last := range lastAuth {
		if usersWithAccess[userID] && !last.Before(activeThreshold) {
			activeUsers++
		}
	}
	activePercent := 0
	if len(usersWithAccess) > 0 {
		activePercent = int(math.Round(float64(activeUsers) / float64(len(usersWithAccess)) * 100))
	}

	// Заявки по статусам и за сегодня
	loc := now.Location()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	tomorrowStart := todayStart.AddDate(0, 0, 1)

	var pending, approved, rejected, requestsToday, pendingOver24h int
	for _, req := range snap.Requests {
		switch req.Status {
		case model.RequestStatusPending:
			pending++
			if now.Sub(req.CreatedAt) > 24*time.Hour {
				pendingOver24h++
			}
		case model.RequestStatusApproved:
			approved++
		case model.RequestStatusRejected:
			rejected++
		}

		created := req.CreatedAt.In(loc)
		if !created.Before(todayStart) && created.Before(tomorrowStart) {
			requestsToday++
		}
	}

	inactive := inactiveUsersList(snap, usersWithAccess, lastAuth, inactiveDays, now)
	trends := monthlyTrends(snap.Requests, now)
	byBranch := usersByBranch(snap, usersWithAccess)
	urgent := urgentTasks(pendingOver24h, len(inactive), inactiveDays)

	inactiveList := inactive
	if len(inactiveList) > inactiveListLimit {
		inactiveList = inactiveList[:inactiveListLimit]
	}

	return &DashboardStats{
		KPIs: KPISet{
			TotalUsers:            len(snap.Users),
			UsersWithAccess:       len(usersWithAccess),
			ActiveUsers30d:        activeUsers,
			ActiveUsers30dPercent: activePercent,
			PendingRequests:       pending,
			ApprovedRequests:      approved,
			RejectedRequests:      rejected,
			TotalRequests:         len(snap.Requests),
			RequestsToday:         requestsToday,
			PriceGroups:           snap.PriceGroups,
			InactiveUsers:         len(inactive),
		},
		RequestMonthlyTrends: trends,
		UsersByBranch:        byBranch,
		UrgentTasks:          urgent,
		InactiveUsers:        inactiveList,
		RecentActivity:       recentActivity(snap.RecentLogs),
		PendingRequests:      pending,
	}
}

// inactiveUsersList строит список пользователей с доступом, чья последняя
// активность строго старше порога. Последняя активность — самый свежий
// login/register, при отсутствии — время регистрации.
func inactiveUsersList(
	snap *Snapshot,
	usersWithAccess map[string]bool,
	lastAuth map[string]time.Time,
	inactiveDays int,
	now time.Time,
) []*InactiveUser {
	threshold := now.AddDate(0, 0, -inactiveDays)

	inactive := make([]*InactiveUser, 0)
	for _, u := range snap.Users {
		if !usersWithAccess[u.ID] {
			continue
		}

		last, ok := lastAuth[u.ID]
		if !ok {
			last = u.CreatedAt
		}
		if !last.Before(threshold) {
			continue
		}

		days := int(math.Floor(now.Sub(last).Hours() / 24))
		inactive = append(inactive, &InactiveUser{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Image:          u.Image,
			ShopName:       u.ShopName,
			LastLogin:      last,
			DaysSinceLogin: days,
		})
	}

	sort.SliceStable(inactive, func(i, j int) bool {
		return inactive[i].DaysSinceLogin > inactive[j].DaysSinceLogin
	})
	return inactive
}

// monthlyTrends строит 12 помесячных бакетов, заканчивая текущим месяцем.
// Границы бакета — [первое число 00:00, первое число следующего месяца)
// в локальном времени.
func monthlyTrends(requests []*model.AccessRequest, now time.Time) []*MonthlyTrend {
	loc := now.Location()
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	trends := make([]*MonthlyTrend, 0, 12)
	index := make(map[string]*MonthlyTrend, 12)
	for i := 11; i >= 0; i-- {
		start := firstOfCurrent.AddDate(0, -i, 0)
		t := &MonthlyTrend{Month: start.Format("2006-01")}
		trends = append(trends, t)
		index[t.Month] = t
	}

	for _, req := range requests {
		label := req.CreatedAt.In(loc).Format("2006-01")
		t, ok := index[label]
		if !ok {
			continue
		}
		t.Total++
		switch req.Status {
		case model.RequestStatusApproved:
			t.Approved++
		case model.RequestStatusRejected:
			t.Rejected++
		case model.RequestStatusPending:
			t.Pending++
		}
	}

	return trends
}

// usersByBranch считает уникальных пользователей с доступом на филиал.
// Филиалы без пользователей не попадают в распределение.
func usersByBranch(snap *Snapshot, usersWithAccess map[string]bool) []*BranchSegment {
	branchUsers := make(map[string]map[string]bool)
	for _, ub := range snap.UserBranches {
		if !usersWithAccess[ub.UserID] {
			continue
		}
		if branchUsers[ub.BranchID] == nil {
			branchUsers[ub.BranchID] = make(map[string]bool)
		}
		branchUsers[ub.BranchID][ub.UserID] = true
	}

	segments := make([]*BranchSegment, 0, len(snap.Branches))
	for _, b := range snap.Branches {
		count := len(branchUsers[b.ID])
		if count == 0 {
			continue
		}
		segments = append(segments, &BranchSegment{Name: b.Name, Value: count})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Value > segments[j].Value
	})
	return segments
}

// urgentTasks строит список срочных задач. Правила независимы:
// отсутствие одного условия не подавляет другое.
func urgentTasks(pendingOver24h, inactiveCount, inactiveDays int) []*UrgentTask {
	tasks := make([]*UrgentTask, 0, 2)

	if pendingOver24h > 0 {
		tasks = append(tasks, &UrgentTask{
			Type:     "pending_requests",
			Title:    fmt.Sprintf("%d คำขอรออนุมัติมากกว่า 24 ชม.", pendingOver24h),
			Count:    pendingOver24h,
			Severity: "high",
			Link:     "/admin",
		})
	}

	if inactiveCount > 0 {
		severity := "medium"
		if inactiveCount > 10 {
			severity = "high"
		}
		tasks = append(tasks, &UrgentTask{
			Type:     "inactive_users",
			Title:    fmt.Sprintf("%d ผู้ใช้ไม่ได้เข้าระบบ %d วัน", inactiveCount, inactiveDays),
			Count:    inactiveCount,
			Severity: severity,
			Link:     "/admin/users",
		})
	}

	return tasks
}

// recentActivity преобразует записи журнала в ленту последних действий.
func recentActivity(logs []*model.UserLog) []*ActivityEntry {
	entries := make([]*ActivityEntry, 0, len(logs))
	for _, l := range logs {
		entry := &ActivityEntry{
			ID:        l.ID,
			UserID:    l.UserID,
			UserName:  "Unknown",
			Action:    l.Action,
			Details:   l.Details,
			CreatedAt: l.CreatedAt,
		}
		if l.User != nil {
			entry.UserName = l.User.Name
			entry.UserImage = l.User.Image
		}
		entries = append(entries, entry)
	}
	return entries
}
