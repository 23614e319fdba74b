package repository

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Joyboy-it/Line-price/internal/config"
	"github.com/Joyboy-it/Line-price/internal/database"
	"github.com/Joyboy-it/Line-price/internal/domain/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; очистка через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("priceportal_test"),
		postgres.WithUsername("priceportal"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("PP_DB_HOST", host)
	os.Setenv("PP_DB_PORT", port.Port())
	os.Setenv("PP_DB_NAME", "priceportal_test")
	os.Setenv("PP_DB_USER", "priceportal")
	os.Setenv("PP_DB_PASSWORD", "test-password")
	os.Setenv("PP_DB_SSL_MODE", "disable")
	os.Setenv("PP_LINE_CHANNEL_ID", "test-channel")
	os.Setenv("PP_STORAGE_PUBLIC_BASE_URL", "http://localhost:8080")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// createTestUser создаёт пользователя для FK-зависимых тестов.
func createTestUser(t *testing.T, pool *pgxpool.Pool, providerID string) *model.User {
	t.Helper()
	u := &model.User{
		ProviderID: providerID,
		Name:       "Тестовый пользователь",
		Provider:   "line",
	}
	if err := NewUserRepository(pool).Create(context.Background(), u); err != nil {
		t.Fatalf("Создание пользователя: %v", err)
	}
	return u
}

// createTestBranch создаёт филиал для FK-зависимых тестов.
func createTestBranch(t *testing.T, pool *pgxpool.Pool, code string) *model.Branch {
	t.Helper()
	b := &model.Branch{Name: "Филиал " + code, Code: code}
	if err := NewBranchRepository(pool).Create(context.Background(), b); err != nil {
		t.Fatalf("Создание филиала: %v", err)
	}
	return b
}

// --- Тесты UserRepository ---

func TestUserCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	email := "alice@example.com"
	u := &model.User{
		ProviderID: "line-u-001",
		Name:       "Alice",
		Email:      &email,
		Provider:   "line",
	}

	// Create
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if u.ID == "" {
		t.Error("ID не установлен")
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}
	if u.IsAdmin || u.IsOperator {
		t.Error("Новый пользователь не должен иметь админских флагов")
	}

	// Дубликат provider_id — конфликт
	dup := &model.User{ProviderID: "line-u-001", Name: "Alice2", Provider: "line"}
	if err := repo.Create(ctx, dup); err == nil {
		t.Error("Create() с дублирующимся provider_id не вернул ошибку")
	}

	// GetByProviderID
	got, err := repo.GetByProviderID(ctx, "line-u-001")
	if err != nil {
		t.Fatalf("GetByProviderID() ошибка: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %q, хотели %q", got.ID, u.ID)
	}

	// UpdateProfile
	newImage := "https://profile.line-scdn.net/abc"
	if err := repo.UpdateProfile(ctx, u.ID, "Alice Updated", nil, &newImage); err != nil {
		t.Fatalf("UpdateProfile() ошибка: %v", err)
	}
	got2, _ := repo.GetByID(ctx, u.ID)
	if got2.Name != "Alice Updated" {
		t.Errorf("Name = %q, хотели %q", got2.Name, "Alice Updated")
	}
	// email не затирается при nil
	if got2.Email == nil || *got2.Email != email {
		t.Errorf("Email = %v, хотели %q", got2.Email, email)
	}

	// Update (админское редактирование)
	shop := "Магазин А"
	got2.ShopName = &shop
	got2.IsOperator = true
	if err := repo.Update(ctx, got2); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	got3, _ := repo.GetByID(ctx, u.ID)
	if got3.ShopName == nil || *got3.ShopName != shop {
		t.Errorf("ShopName = %v, хотели %q", got3.ShopName, shop)
	}
	if !got3.IsOperator {
		t.Error("IsOperator не обновлён")
	}

	// ListAll
	list, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListAll() вернул %d записей, хотели 1", len(list))
	}

	// Delete
	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, u.ID); err != ErrNotFound {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты PriceGroupRepository ---

func TestPriceGroupCRUDAndImages(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewPriceGroupRepository(pool)
	branch := createTestBranch(t, pool, "BKK")
	user := createTestUser(t, pool, "line-uploader")

	g := &model.PriceGroup{Name: "Медь", BranchID: &branch.ID}
	if err := repo.Create(ctx, g); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Без изображений last_updated_at пуст
	got, err := repo.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.LastUpdatedAt != nil {
		t.Errorf("LastUpdatedAt = %v без изображений, хотели nil", got.LastUpdatedAt)
	}

	// Добавляем два изображения
	img1 := &model.PriceGroupImage{PriceGroupID: g.ID, FilePath: "price-images/a.jpg", UploadedBy: &user.ID}
	img2 := &model.PriceGroupImage{PriceGroupID: g.ID, FilePath: "price-images/b.jpg", UploadedBy: &user.ID}
	if err := repo.AddImage(ctx, img1); err != nil {
		t.Fatalf("AddImage() ошибка: %v", err)
	}
	if err := repo.AddImage(ctx, img2); err != nil {
		t.Fatalf("AddImage() ошибка: %v", err)
	}

	// last_updated_at = created_at последнего изображения
	got2, _ := repo.GetByID(ctx, g.ID)
	if got2.LastUpdatedAt == nil {
		t.Fatal("LastUpdatedAt = nil после загрузки изображений")
	}
	if !got2.LastUpdatedAt.Equal(img2.CreatedAt) {
		t.Errorf("LastUpdatedAt = %v, хотели %v", got2.LastUpdatedAt, img2.CreatedAt)
	}

	// ListImages — новые первыми
	images, err := repo.ListImages(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListImages() ошибка: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("ListImages() вернул %d, хотели 2", len(images))
	}

	// Фильтрация List по филиалу
	other := createTestBranch(t, pool, "CNX")
	g2 := &model.PriceGroup{Name: "Алюминий", BranchID: &other.ID}
	if err := repo.Create(ctx, g2); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	filtered, err := repo.List(ctx, &branch.ID)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != g.ID {
		t.Errorf("List(branch) вернул %d записей, хотели только группу филиала", len(filtered))
	}

	// Count
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, хотели 2", count)
	}

	// DeleteImage возвращает file_path
	path, err := repo.DeleteImage(ctx, img1.ID)
	if err != nil {
		t.Fatalf("DeleteImage() ошибка: %v", err)
	}
	if path != "price-images/a.jpg" {
		t.Errorf("DeleteImage() file_path = %q", path)
	}

	// DeleteImagesByGroup возвращает оставшиеся пути
	paths, err := repo.DeleteImagesByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("DeleteImagesByGroup() ошибка: %v", err)
	}
	if len(paths) != 1 || paths[0] != "price-images/b.jpg" {
		t.Errorf("DeleteImagesByGroup() = %v", paths)
	}

	// Delete группы
	if err := repo.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, g.ID); err != ErrNotFound {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты AccessRequestRepository ---

func TestAccessRequestLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewAccessRequestRepository(pool)
	user := createTestUser(t, pool, "line-req-user")
	branch := createTestBranch(t, pool, "HKT")

	req := &model.AccessRequest{
		UserID:   user.ID,
		BranchID: branch.ID,
		ShopName: "ร้านรีไซเคิล",
	}
	if err := repo.Create(ctx, req); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if req.Status != model.RequestStatusPending {
		t.Errorf("Status = %q, хотели pending", req.Status)
	}

	// HasPending
	pending, err := repo.HasPending(ctx, user.ID)
	if err != nil {
		t.Fatalf("HasPending() ошибка: %v", err)
	}
	if !pending {
		t.Error("HasPending() = false, хотели true")
	}

	// GetByID с join
	got, err := repo.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.User == nil || got.User.Name != "Тестовый пользователь" {
		t.Error("GetByID() не подгрузил пользователя")
	}
	if got.Branch == nil || got.Branch.Code != "HKT" {
		t.Error("GetByID() не подгрузил филиал")
	}

	// List с фильтром по статусу
	pendingStatus := model.RequestStatusPending
	list, err := repo.List(ctx, &pendingStatus, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List(pending) вернул %d, хотели 1", len(list))
	}

	// UpdateStatus: pending -> approved
	updated, err := repo.UpdateStatus(ctx, req.ID, model.RequestStatusApproved, nil)
	if err != nil {
		t.Fatalf("UpdateStatus() ошибка: %v", err)
	}
	if updated.Status != model.RequestStatusApproved {
		t.Errorf("Status = %q, хотели approved", updated.Status)
	}

	// Повторный перевод уже обработанной заявки — ErrNotFound
	if _, err := repo.UpdateStatus(ctx, req.ID, model.RequestStatusRejected, nil); err != ErrNotFound {
		t.Errorf("Повторный UpdateStatus: ожидали ErrNotFound, получили %v", err)
	}

	// LatestByUser
	latest, err := repo.LatestByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("LatestByUser() ошибка: %v", err)
	}
	if latest.ID != req.ID {
		t.Errorf("LatestByUser() ID = %q, хотели %q", latest.ID, req.ID)
	}
}

// --- Тесты GroupAccessRepository ---

func TestGroupAccessGrantIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewGroupAccessRepository(pool)
	groupRepo := NewPriceGroupRepository(pool)
	user := createTestUser(t, pool, "line-access-user")
	admin := createTestUser(t, pool, "line-access-admin")

	g := &model.PriceGroup{Name: "Железо"}
	if err := groupRepo.Create(ctx, g); err != nil {
		t.Fatalf("Создание группы: %v", err)
	}

	// Двойная выдача одного доступа — одна строка
	if err := repo.Grant(ctx, user.ID, g.ID, &admin.ID); err != nil {
		t.Fatalf("Grant() ошибка: %v", err)
	}
	if err := repo.Grant(ctx, user.ID, g.ID, &admin.ID); err != nil {
		t.Fatalf("Повторный Grant() ошибка: %v", err)
	}

	access, err := repo.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() ошибка: %v", err)
	}
	if len(access) != 1 {
		t.Fatalf("ListByUser() вернул %d записей, хотели 1", len(access))
	}
	if access[0].PriceGroup == nil || access[0].PriceGroup.Name != "Железо" {
		t.Error("ListByUser() не подгрузил прайс-группу")
	}

	// ReplaceForUser
	g2 := &model.PriceGroup{Name: "Пластик"}
	if err := groupRepo.Create(ctx, g2); err != nil {
		t.Fatalf("Создание группы: %v", err)
	}
	if err := repo.ReplaceForUser(ctx, user.ID, []string{g2.ID}, &admin.ID); err != nil {
		t.Fatalf("ReplaceForUser() ошибка: %v", err)
	}
	access2, _ := repo.ListByUser(ctx, user.ID)
	if len(access2) != 1 || access2[0].PriceGroupID != g2.ID {
		t.Errorf("После ReplaceForUser доступы = %d, хотели только новую группу", len(access2))
	}
}

// --- Тесты UserBranchRepository ---

func TestUserBranchReplace(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserBranchRepository(pool)
	user := createTestUser(t, pool, "line-branch-user")
	admin := createTestUser(t, pool, "line-branch-admin")
	b1 := createTestBranch(t, pool, "B1")
	b2 := createTestBranch(t, pool, "B2")

	if err := repo.ReplaceForUser(ctx, user.ID, []string{b1.ID, b2.ID}, &admin.ID); err != nil {
		t.Fatalf("ReplaceForUser() ошибка: %v", err)
	}

	list, err := repo.ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListByUser() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByUser() вернул %d, хотели 2", len(list))
	}

	// Замена на один филиал
	if err := repo.ReplaceForUser(ctx, user.ID, []string{b2.ID}, &admin.ID); err != nil {
		t.Fatalf("Повторный ReplaceForUser() ошибка: %v", err)
	}
	list2, _ := repo.ListByUser(ctx, user.ID)
	if len(list2) != 1 || list2[0].BranchID != b2.ID {
		t.Errorf("После замены привязок %d, хотели только B2", len(list2))
	}
}

// --- Тесты AnnouncementRepository ---

func TestAnnouncementCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewAnnouncementRepository(pool)
	user := createTestUser(t, pool, "line-ann-admin")

	body := "Текст объявления"
	a := &model.Announcement{
		Title:       "Новые цены",
		Body:        &body,
		IsPublished: true,
		CreatedBy:   &user.ID,
		Images: []*model.AnnouncementImage{
			{ImagePath: "announcements/1.jpg", SortOrder: 0},
			{ImagePath: "announcements/2.jpg", SortOrder: 1},
		},
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// GetByID: изображения упорядочены, превью из первого изображения
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if len(got.Images) != 2 {
		t.Fatalf("GetByID() вернул %d изображений, хотели 2", len(got.Images))
	}
	if got.Images[0].SortOrder != 0 || got.Images[1].SortOrder != 1 {
		t.Error("Изображения не упорядочены по sort_order")
	}
	if got.ImagePath == nil || *got.ImagePath != "announcements/1.jpg" {
		t.Errorf("ImagePath = %v, хотели превью из первого изображения", got.ImagePath)
	}

	// Неопубликованное объявление не попадает в ListPublished
	draft := &model.Announcement{Title: "Черновик"}
	if err := repo.Create(ctx, draft); err != nil {
		t.Fatalf("Create() черновика: %v", err)
	}
	published, err := repo.ListPublished(ctx, 3)
	if err != nil {
		t.Fatalf("ListPublished() ошибка: %v", err)
	}
	if len(published) != 1 {
		t.Errorf("ListPublished() вернул %d, хотели 1", len(published))
	}

	// ListAll видит всё
	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() ошибка: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListAll() вернул %d, хотели 2", len(all))
	}

	// Update: замена набора изображений
	a.Title = "Обновлённые цены"
	a.IsPublished = false
	a.Images = []*model.AnnouncementImage{
		{ImagePath: "announcements/3.jpg", SortOrder: 0},
	}
	removed, err := repo.Update(ctx, a)
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("Update() удалил %d изображений, хотели 2", len(removed))
	}
	got2, _ := repo.GetByID(ctx, a.ID)
	if got2.Title != "Обновлённые цены" || got2.IsPublished {
		t.Error("Update() не применил изменения")
	}
	if len(got2.Images) != 1 {
		t.Errorf("После Update изображений %d, хотели 1", len(got2.Images))
	}

	// Delete возвращает пути изображений
	paths, err := repo.Delete(ctx, a.ID)
	if err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if len(paths) != 1 || paths[0] != "announcements/3.jpg" {
		t.Errorf("Delete() paths = %v", paths)
	}
	if _, err := repo.GetByID(ctx, a.ID); err != ErrNotFound {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты UserLogRepository ---

func TestUserLogInsertAndList(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserLogRepository(pool)
	user := createTestUser(t, pool, "line-log-user")

	logs := []*model.UserLog{
		{UserID: user.ID, Action: model.ActionRegister, IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0"},
		{UserID: user.ID, Action: model.ActionLogin, IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0"},
		{UserID: user.ID, Action: model.ActionViewPrice, IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0"},
	}
	for _, l := range logs {
		if err := repo.Insert(ctx, l); err != nil {
			t.Fatalf("Insert() ошибка: %v", err)
		}
	}

	// List с фильтром по action
	action := model.ActionLogin
	filtered, err := repo.List(ctx, nil, &action, 50, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("List(login) вернул %d, хотели 1", len(filtered))
	}
	if filtered[0].User == nil || filtered[0].User.Name == "" {
		t.Error("List() не подгрузил пользователя")
	}

	// Recent
	recent, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() ошибка: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("Recent(2) вернул %d, хотели 2", len(recent))
	}

	// ListAuthEvents — только login/register
	events, err := repo.ListAuthEvents(ctx)
	if err != nil {
		t.Fatalf("ListAuthEvents() ошибка: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("ListAuthEvents() вернул %d, хотели 2", len(events))
	}
}
