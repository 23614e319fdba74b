package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAudit создаёт AuditService поверх in-memory журнала.
func newTestAudit() (*AuditService, *fakeUserLogRepo) {
	logRepo := &fakeUserLogRepo{}
	return NewAuditService(logRepo, testLogger()), logRepo
}

// --- In-memory репозитории для тестов сервисного слоя ---

// fakeUserLogRepo — журнал аудита в памяти.
type fakeUserLogRepo struct {
	entries []*model.UserLog
	seq     int
	failAll bool
}

func (f *fakeUserLogRepo) Insert(_ context.Context, l *model.UserLog) error {
	if f.failAll {
		return fmt.Errorf("журнал недоступен")
	}
	f.seq++
	l.ID = fmt.Sprintf("log-%d", f.seq)
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	f.entries = append(f.entries, l)
	return nil
}

func (f *fakeUserLogRepo) List(_ context.Context, userID, action *string, limit, offset int) ([]*model.UserLog, error) {
	var out []*model.UserLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		l := f.entries[i]
		if userID != nil && l.UserID != *userID {
			continue
		}
		if action != nil && l.Action != *action {
			continue
		}
		out = append(out, l)
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserLogRepo) Recent(ctx context.Context, limit int) ([]*model.UserLog, error) {
	return f.List(ctx, nil, nil, limit, 0)
}

func (f *fakeUserLogRepo) ListAuthEvents(context.Context) ([]repository.AuthEvent, error) {
	var out []repository.AuthEvent
	for _, l := range f.entries {
		if l.Action == model.ActionLogin || l.Action == model.ActionRegister {
			out = append(out, repository.AuthEvent{UserID: l.UserID, CreatedAt: l.CreatedAt})
		}
	}
	return out, nil
}

// lastEntry возвращает последнюю запись журнала или nil.
func (f *fakeUserLogRepo) lastEntry() *model.UserLog {
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

// fakeUserRepo — пользователи в памяти.
type fakeUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.ProviderID == u.ProviderID {
			return repository.ErrConflict
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("user-%d", f.seq)
	u.CreatedAt = time.Now()
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByProviderID(_ context.Context, providerID string) (*model.User, error) {
	for _, u := range f.users {
		if u.ProviderID == providerID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id, name string, email, image *string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = name
	if email != nil {
		u.Email = email
	}
	if image != nil {
		u.Image = image
	}
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) ListAll(context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeBranchRepo — филиалы в памяти.
type fakeBranchRepo struct {
	branches map[string]*model.Branch
	seq      int
	listErr  error
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{branches: make(map[string]*model.Branch)}
}

func (f *fakeBranchRepo) Create(_ context.Context, b *model.Branch) error {
	for _, existing := range f.branches {
		if existing.Code == b.Code {
			return repository.ErrConflict
		}
	}
	f.seq++
	b.ID = fmt.Sprintf("branch-%d", f.seq)
	b.CreatedAt = time.Now()
	f.branches[b.ID] = b
	return nil
}

func (f *fakeBranchRepo) GetByID(_ context.Context, id string) (*model.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBranchRepo) ListAll(context.Context) ([]*model.Branch, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Branch, 0, len(f.branches))
	for _, b := range f.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fakeAccessRequestRepo — заявки в памяти.
type fakeAccessRequestRepo struct {
	requests map[string]*model.AccessRequest
	seq      int
}

func newFakeAccessRequestRepo() *fakeAccessRequestRepo {
	return &fakeAccessRequestRepo{requests: make(map[string]*model.AccessRequest)}
}

func (f *fakeAccessRequestRepo) Create(_ context.Context, req *model.AccessRequest) error {
	f.seq++
	req.ID = fmt.Sprintf("req-%d", f.seq)
	req.Status = model.RequestStatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	copied := *req
	f.requests[req.ID] = &copied
	return nil
}

func (f *fakeAccessRequestRepo) GetByID(_ context.Context, id string) (*model.AccessRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (f *fakeAccessRequestRepo) List(_ context.Context, status *string, limit, offset int) ([]*model.AccessRequest, error) {
	out := f.filtered(status)
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAccessRequestRepo) Count(_ context.Context, status *string) (int, error) {
	return len(f.filtered(status)), nil
}

func (f *fakeAccessRequestRepo) filtered(status *string) []*model.AccessRequest {
	var out []*model.AccessRequest
	for _, req := range f.requests {
		if status != nil && req.Status != *status {
			continue
		}
		copied := *req
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeAccessRequestRepo) LatestByUser(_ context.Context, userID string) (*model.AccessRequest, error) {
	var latest *model.AccessRequest
	for _, req := range f.requests {
		if req.UserID != userID {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeAccessRequestRepo) HasPending(_ context.Context, userID string) (bool, error) {
	for _, req := range f.requests {
		if req.UserID == userID && req.Status == model.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccessRequestRepo) UpdateStatus(_ context.Context, id, status string, rejectReason *string) (*model.AccessRequest, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return nil, repository.ErrNotFound
	}
	req.Status = status
	req.RejectReason = rejectReason
	req.UpdatedAt = time.Now()
	copied := *req
	return &copied, nil
}

func (f *fakeAccessRequestRepo) ListAll(ctx context.Context) ([]*model.AccessRequest, error) {
	return f.filtered(nil), nil
}

// fakeGroupAccessRepo — доступы к группам в памяти.
type fakeGroupAccessRepo struct {
	access []*model.UserGroupAccess
	seq    int
}

func (f *fakeGroupAccessRepo) Grant(_ context.Context, userID, priceGroupID string, grantedBy *string) error {
	for _, ga := range f.access {
		if ga.UserID == userID && ga.PriceGroupID == priceGroupID {
			return nil
		}
	}
	f.seq++
	f.access = append(f.access, &model.UserGroupAccess{
		ID:           fmt.Sprintf("access-%d", f.seq),
		UserID:       userID,
		PriceGroupID: priceGroupID,
		GrantedBy:    grantedBy,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (f *fakeGroupAccessRepo) ReplaceForUser(ctx context.Context, userID string, priceGroupIDs []string, grantedBy *string) error {
	kept := f.access[:0]
	for _, ga := range f.access {
		if ga.UserID != userID {
			kept = append(kept, ga)
		}
	}
	f.access = kept
	for _, id := range priceGroupIDs {
		if err := f.Grant(ctx, userID, id, grantedBy); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGroupAccessRepo) HasAccess(_ context.Context, userID, priceGroupID string) (bool, error) {
	for _, ga := range f.access {
		if ga.UserID == userID && ga.PriceGroupID == priceGroupID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroupAccessRepo) ListByUser(_ context.Context, userID string) ([]*model.UserGroupAccess, error) {
	var out []*model.UserGroupAccess
	for _, ga := range f.access {
		if ga.UserID == userID {
			out = append(out, ga)
		}
	}
	return out, nil
}

func (f *fakeGroupAccessRepo) ListAll(context.Context) ([]*model.UserGroupAccess, error) {
	return f.access, nil
}

// fakeUserBranchRepo — привязки к филиалам в памяти.
type fakeUserBranchRepo struct {
	links []*model.UserBranch
	seq   int
}

func (f *fakeUserBranchRepo) ReplaceForUser(_ context.Context, userID string, branchIDs []string, assignedBy *string) error {
	kept := f.links[:0]
	for _, ub := range f.links {
		if ub.UserID != userID {
			kept = append(kept, ub)
		}
	}
	f.links = kept
	for _, id := range branchIDs {
		f.seq++
		f.links = append(f.links, &model.UserBranch{
			ID:         fmt.Sprintf("ub-%d", f.seq),
			UserID:     userID,
			BranchID:   id,
			AssignedBy: assignedBy,
			CreatedAt:  time.Now(),
		})
	}
	return nil
}

func (f *fakeUserBranchRepo) ListByUser(_ context.Context, userID string) ([]*model.UserBranch, error) {
	var out []*model.UserBranch
	for _, ub := range f.links {
		if ub.UserID == userID {
			out = append(out, ub)
		}
	}
	return out, nil
}

func (f *fakeUserBranchRepo) ListAll(context.Context) ([]*model.UserBranch, error) {
	return f.links, nil
}

// fakePriceGroupRepo — прайс-группы и изображения в памяти.
type fakePriceGroupRepo struct {
	groups   map[string]*model.PriceGroup
	images   map[string]*model.PriceGroupImage
	seq      int
	imageSeq int
}

func newFakePriceGroupRepo() *fakePriceGroupRepo {
	return &fakePriceGroupRepo{
		groups: make(map[string]*model.PriceGroup),
		images: make(map[string]*model.PriceGroupImage),
	}
}

func (f *fakePriceGroupRepo) Create(_ context.Context, g *model.PriceGroup) error {
	f.seq++
	g.ID = fmt.Sprintf("group-%d", f.seq)
	g.CreatedAt = time.Now()
	copied := *g
	f.groups[g.ID] = &copied
	return nil
}

func (f *fakePriceGroupRepo) GetByID(_ context.Context, id string) (*model.PriceGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (f *fakePriceGroupRepo) List(_ context.Context, branchID *string) ([]*model.PriceGroup, error) {
	var out []*model.PriceGroup
	for _, g := range f.groups {
		if branchID != nil && (g.BranchID == nil || *g.BranchID != *branchID) {
			continue
		}
		copied := *g
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePriceGroupRepo) Update(_ context.Context, g *model.PriceGroup) error {
	existing, ok := f.groups[g.ID]
	if !ok {
		return repository.ErrNotFound
	}
	g.CreatedAt = existing.CreatedAt
	copied := *g
	f.groups[g.ID] = &copied
	return nil
}

func (f *fakePriceGroupRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.groups[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.groups, id)
	return nil
}

func (f *fakePriceGroupRepo) Count(context.Context) (int, error) {
	return len(f.groups), nil
}

func (f *fakePriceGroupRepo) AddImage(_ context.Context, img *model.PriceGroupImage) error {
	if _, ok := f.groups[img.PriceGroupID]; !ok {
		return repository.ErrNotFound
	}
	f.imageSeq++
	img.ID = fmt.Sprintf("img-%d", f.imageSeq)
	img.CreatedAt = time.Now()
	copied := *img
	f.images[img.ID] = &copied
	return nil
}

func (f *fakePriceGroupRepo) GetImage(_ context.Context, id string) (*model.PriceGroupImage, error) {
	img, ok := f.images[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *img
	return &copied, nil
}

func (f *fakePriceGroupRepo) ListImages(_ context.Context, groupID string) ([]*model.PriceGroupImage, error) {
	var out []*model.PriceGroupImage
	for _, img := range f.images {
		if img.PriceGroupID == groupID {
			copied := *img
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePriceGroupRepo) DeleteImage(_ context.Context, id string) (string, error) {
	img, ok := f.images[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	delete(f.images, id)
	return img.FilePath, nil
}

func (f *fakePriceGroupRepo) DeleteImagesByGroup(_ context.Context, groupID string) ([]string, error) {
	var paths []string
	for id, img := range f.images {
		if img.PriceGroupID == groupID {
			paths = append(paths, img.FilePath)
			delete(f.images, id)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// fakeAnnouncementRepo — объявления в памяти.
type fakeAnnouncementRepo struct {
	items map[string]*model.Announcement
	seq   int
}

func newFakeAnnouncementRepo() *fakeAnnouncementRepo {
	return &fakeAnnouncementRepo{items: make(map[string]*model.Announcement)}
}

func (f *fakeAnnouncementRepo) Create(_ context.Context, a *model.Announcement) error {
	f.seq++
	a.ID = fmt.Sprintf("ann-%d", f.seq)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	if len(a.Images) > 0 {
		a.ImagePath = &a.Images[0].ImagePath
	}
	copied := *a
	f.items[a.ID] = &copied
	return nil
}

func (f *fakeAnnouncementRepo) GetByID(_ context.Context, id string) (*model.Announcement, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAnnouncementRepo) ListPublished(_ context.Context, limit int) ([]*model.Announcement, error) {
	var out []*model.Announcement
	for _, a := range f.items {
		if a.IsPublished {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAnnouncementRepo) ListAll(context.Context) ([]*model.Announcement, error) {
	var out []*model.Announcement
	for _, a := range f.items {
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAnnouncementRepo) Update(_ context.Context, a *model.Announcement) ([]string, error) {
	existing, ok := f.items[a.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var removed []string
	for _, img := range existing.Images {
		removed = append(removed, img.ImagePath)
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now()
	if len(a.Images) > 0 {
		a.ImagePath = &a.Images[0].ImagePath
	} else {
		a.ImagePath = nil
	}
	copied := *a
	f.items[a.ID] = &copied
	return removed, nil
}

func (f *fakeAnnouncementRepo) Delete(_ context.Context, id string) ([]string, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var paths []string
	for _, img := range a.Images {
		paths = append(paths, img.ImagePath)
	}
	delete(f.items, id)
	return paths, nil
}

// fakeFileRemover — учёт удалённых файлов.
type fakeFileRemover struct {
	removed []string
}

func (f *fakeFileRemover) Remove(filePath string) error {
	f.removed = append(f.removed, filePath)
	return nil
}
