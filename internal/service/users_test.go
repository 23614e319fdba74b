package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Joyboy-it/Line-price/internal/api/middleware"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

// newTestUserService собирает сервис пользователей на in-memory репозиториях.
func newTestUserService() (*UserService, *fakeUserRepo, *fakeUserLogRepo) {
	userRepo := newFakeUserRepo()
	audit, logRepo := newTestAudit()
	svc := NewUserService(userRepo, &fakeUserBranchRepo{}, &fakeGroupAccessRepo{}, audit, testLogger())
	return svc, userRepo, logRepo
}

// lineClaims строит claims LINE для тестов входа.
func lineTestClaims(providerID, name, email string) *middleware.AuthClaims {
	return &middleware.AuthClaims{
		ProviderID: providerID,
		Name:       name,
		Email:      email,
		Picture:    "https://profile.line-scdn.net/" + providerID,
	}
}

// TestEnsureUser_FirstLogin — первый вход создаёт учётную запись
// и пишет register в журнал.
func TestEnsureUser_FirstLogin(t *testing.T) {
	svc, _, logRepo := newTestUserService()
	ctx := context.Background()

	user, created, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", "somchai@test.com"))
	if err != nil {
		t.Fatalf("вход не удался: %v", err)
	}
	if !created {
		t.Error("ожидался признак создания новой записи")
	}
	if user.ID == "" || user.ProviderID != "U111" || user.Provider != "line" {
		t.Errorf("неожиданная учётная запись: %+v", user)
	}
	if user.Email == nil || *user.Email != "somchai@test.com" {
		t.Errorf("не сохранён email: %+v", user.Email)
	}

	entry := logRepo.lastEntry()
	if entry == nil || entry.Action != model.ActionRegister {
		t.Fatalf("ожидалась запись register, получено %+v", entry)
	}
}

// TestEnsureUser_RepeatLogin — повторный вход обновляет профиль
// и пишет login.
func TestEnsureUser_RepeatLogin(t *testing.T) {
	svc, userRepo, logRepo := newTestUserService()
	ctx := context.Background()

	first, _, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", ""))
	if err != nil {
		t.Fatal(err)
	}

	second, created, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย ใหม่", "new@test.com"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("повторный вход не должен создавать запись")
	}
	if second.ID != first.ID {
		t.Errorf("ожидалась та же учётная запись: %s != %s", second.ID, first.ID)
	}

	stored, _ := userRepo.GetByID(ctx, first.ID)
	if stored.Name != "สมชาย ใหม่" {
		t.Errorf("имя не обновлено: %s", stored.Name)
	}
	if stored.Email == nil || *stored.Email != "new@test.com" {
		t.Errorf("email не обновлён: %+v", stored.Email)
	}

	entry := logRepo.lastEntry()
	if entry == nil || entry.Action != model.ActionLogin {
		t.Fatalf("ожидалась запись login, получено %+v", entry)
	}
}

// TestUserUpdate — изменение полей пишет edit_user, изменение ролей
// дополнительно grant_admin.
func TestUserUpdate(t *testing.T) {
	svc, _, logRepo := newTestUserService()
	ctx := context.Background()

	user, _, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", ""))
	if err != nil {
		t.Fatal(err)
	}

	shop := "ร้านรีไซเคิล"
	isOperator := true
	updated, err := svc.Update(ctx, "admin-1", user.ID, UpdateInput{
		ShopName:   &shop,
		IsOperator: &isOperator,
	})
	if err != nil {
		t.Fatalf("обновление не удалось: %v", err)
	}
	if updated.ShopName == nil || *updated.ShopName != shop {
		t.Errorf("shop_name не обновлён: %+v", updated.ShopName)
	}
	if !updated.IsOperator {
		t.Error("ожидался is_operator=true")
	}

	// Последние две записи: edit_user, затем grant_admin
	if len(logRepo.entries) < 2 {
		t.Fatalf("ожидалось минимум 2 записи журнала, получено %d", len(logRepo.entries))
	}
	last := logRepo.entries[len(logRepo.entries)-1]
	prev := logRepo.entries[len(logRepo.entries)-2]
	if prev.Action != model.ActionEditUser {
		t.Errorf("ожидалась запись edit_user, получено %s", prev.Action)
	}
	if last.Action != model.ActionGrantAdmin {
		t.Errorf("ожидалась запись grant_admin, получено %s", last.Action)
	}
}

// TestUserUpdate_NoChanges — пустой ввод не пишет аудит.
func TestUserUpdate_NoChanges(t *testing.T) {
	svc, _, logRepo := newTestUserService()
	ctx := context.Background()

	user, _, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", ""))
	if err != nil {
		t.Fatal(err)
	}
	before := len(logRepo.entries)

	if _, err := svc.Update(ctx, "admin-1", user.ID, UpdateInput{}); err != nil {
		t.Fatal(err)
	}
	if len(logRepo.entries) != before {
		t.Error("пустое обновление не должно писать аудит")
	}
}

// TestUserUpdate_NotFound — несуществующий пользователь.
func TestUserUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestUserService()

	if _, err := svc.Update(context.Background(), "admin-1", "missing", UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestUserReplaceBranchesAndGroups — замена привязок и доступов.
func TestUserReplaceBranchesAndGroups(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	user, _, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", ""))
	if err != nil {
		t.Fatal(err)
	}

	branches, err := svc.ReplaceBranches(ctx, "admin-1", user.ID, []string{"b1", "b2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) != 2 {
		t.Errorf("ожидалось 2 привязки, получено %d", len(branches))
	}

	groups, err := svc.ReplaceGroups(ctx, "admin-1", user.ID, []string{"g1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Errorf("ожидался 1 доступ, получено %d", len(groups))
	}

	// Полная замена набора
	branches, err = svc.ReplaceBranches(ctx, "admin-1", user.ID, []string{"b3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) != 1 || branches[0].BranchID != "b3" {
		t.Errorf("ожидалась единственная привязка b3, получено %+v", branches)
	}

	full, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(full.UserBranches) != 1 || len(full.GroupAccess) != 1 {
		t.Errorf("неожиданные привязки: branches=%d groups=%d", len(full.UserBranches), len(full.GroupAccess))
	}
}

// TestUserRemoveBranchAndGroup — удаление одной привязки из набора.
func TestUserRemoveBranchAndGroup(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	user, _, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", ""))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ReplaceBranches(ctx, "admin-1", user.ID, []string{"b1", "b2"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ReplaceGroups(ctx, "admin-1", user.ID, []string{"g1", "g2"}); err != nil {
		t.Fatal(err)
	}

	branches, err := svc.RemoveBranch(ctx, "admin-1", user.ID, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) != 1 || branches[0].BranchID != "b2" {
		t.Errorf("ожидалась единственная привязка b2, получено %+v", branches)
	}

	groups, err := svc.RemoveGroup(ctx, "admin-1", user.ID, "g2")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].PriceGroupID != "g1" {
		t.Errorf("ожидался единственный доступ g1, получено %+v", groups)
	}

	// Удаление несуществующей привязки
	if _, err := svc.RemoveBranch(ctx, "admin-1", user.ID, "b9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestUserDelete — удаление и повторное удаление.
func TestUserDelete(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	user, _, err := svc.EnsureUser(ctx, lineTestClaims("U111", "สมชาย", ""))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидался ErrNotFound, получено %v", err)
	}
}

// TestAuditFailureDoesNotBreakFlow — недоступный журнал не ломает вход.
func TestAuditFailureDoesNotBreakFlow(t *testing.T) {
	userRepo := newFakeUserRepo()
	logRepo := &fakeUserLogRepo{failAll: true}
	audit := NewAuditService(logRepo, testLogger())
	svc := NewUserService(userRepo, &fakeUserBranchRepo{}, &fakeGroupAccessRepo{}, audit, testLogger())

	if _, _, err := svc.EnsureUser(context.Background(), lineTestClaims("U111", "สมชาย", "")); err != nil {
		t.Errorf("ошибка журнала не должна ломать вход: %v", err)
	}
}
