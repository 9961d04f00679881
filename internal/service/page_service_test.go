package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/repository"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type stubPageRepo struct {
	pages     map[uint]models.Page
	nextID    uint
	createErr error
	updateErr error
	roleCount int64
	stats     repository.PageStats
	deleted   []uint
}

func newStubPageRepo() *stubPageRepo {
	return &stubPageRepo{pages: map[uint]models.Page{}, nextID: 1}
}

func (r *stubPageRepo) List(ctx context.Context, filter repository.PageFilter) ([]models.Page, int64, error) {
	out := make([]models.Page, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *stubPageRepo) ListSimple(ctx context.Context, activeOnly bool) ([]models.Page, error) {
	out := make([]models.Page, 0, len(r.pages))
	for _, p := range r.pages {
		if activeOnly && p.Status != models.PageStatusActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *stubPageRepo) ListByIDs(ctx context.Context, ids []uint) ([]models.Page, error) {
	out := make([]models.Page, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.pages[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubPageRepo) ListByUser(ctx context.Context, userID uint) ([]models.Page, error) {
	return nil, nil
}

func (r *stubPageRepo) GetByID(ctx context.Context, id uint) (models.Page, error) {
	p, ok := r.pages[id]
	if !ok {
		return models.Page{}, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubPageRepo) Create(ctx context.Context, page *models.Page) error {
	if r.createErr != nil {
		return r.createErr
	}
	page.ID = r.nextID
	r.nextID++
	r.pages[page.ID] = *page
	return nil
}

func (r *stubPageRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.pages[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := fields["url"]; ok {
		p.URL = v.(string)
	}
	if v, ok := fields["status"]; ok {
		p.Status = v.(string)
	}
	if v, ok := fields["is_external"]; ok {
		p.IsExternal = v.(bool)
	}
	if v, ok := fields["icon"]; ok {
		icon := v.(string)
		p.Icon = &icon
	}
	r.pages[id] = p
	return nil
}

func (r *stubPageRepo) Delete(ctx context.Context, id uint) error {
	delete(r.pages, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubPageRepo) RoleCount(ctx context.Context, pageID uint) (int64, error) {
	return r.roleCount, nil
}

func (r *stubPageRepo) HasAccess(ctx context.Context, userID uint, url string) (bool, error) {
	return false, nil
}

func (r *stubPageRepo) Stats(ctx context.Context) (repository.PageStats, error) {
	return r.stats, nil
}

type stubFileStore struct {
	stored   []string
	removed  []string
	storeErr error
}

func (s *stubFileStore) Store(ctx context.Context, originalName string, reader io.Reader) (string, error) {
	if s.storeErr != nil {
		return "", s.storeErr
	}
	path := "/uploads/icons/" + originalName
	s.stored = append(s.stored, path)
	return path, nil
}

func (s *stubFileStore) Remove(ctx context.Context, publicPath string) error {
	s.removed = append(s.removed, publicPath)
	return nil
}

type stubRecorder struct {
	entries []ActivityEntry
}

func (r *stubRecorder) Record(ctx context.Context, entry ActivityEntry) {
	r.entries = append(r.entries, entry)
}

type stubNotifier struct {
	calls []uint
}

func (n *stubNotifier) PermissionsUpdated(resource string, id uint) {
	n.calls = append(n.calls, id)
}

func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("icon", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File["icon"]
	require.Len(t, files, 1)
	return files[0]
}

func newPageServiceForTest(repo repository.PageRepository, store *stubFileStore, recorder *stubRecorder, notifier *stubNotifier, cache *redis.Client) PageService {
	return NewPageService(
		repo,
		store,
		recorder,
		notifier,
		validator.New(validator.WithRequiredStructEnabled()),
		cache,
		time.Minute,
		nil,
		zerolog.Nop(),
	)
}

func TestPageServiceCreateRecordsActivityAndNotifies(t *testing.T) {
	repo := newStubPageRepo()
	store := &stubFileStore{}
	recorder := &stubRecorder{}
	notifier := &stubNotifier{}
	svc := newPageServiceForTest(repo, store, recorder, notifier, nil)

	actor := ActivityActor{ID: 7, Username: "admin"}
	created, err := svc.Create(context.Background(), actor, RequestMeta{IP: "127.0.0.1"}, dto.PageCreateRequest{
		Name: "Dashboard",
		URL:  "/dashboard",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "Dashboard", created.Name)
	require.Equal(t, models.PageStatusActive, created.Status)
	require.Equal(t, uint(7), created.CreatedBy)

	require.Len(t, recorder.entries, 1)
	require.Equal(t, models.ActionCreate, recorder.entries[0].Action)
	require.Equal(t, models.ResourcePage, recorder.entries[0].ResourceType)
	require.Len(t, notifier.calls, 1)
}

func TestPageServiceCreateSanitizesName(t *testing.T) {
	repo := newStubPageRepo()
	svc := newPageServiceForTest(repo, &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, nil)

	created, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Reports<script>alert(1)</script>",
		URL:  "/reports",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "Reports", created.Name)
}

func TestPageServiceCreateDuplicateURL(t *testing.T) {
	repo := newStubPageRepo()
	repo.createErr = gorm.ErrDuplicatedKey
	store := &stubFileStore{}
	svc := newPageServiceForTest(repo, store, &stubRecorder{}, &stubNotifier{}, nil)

	_, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Dup",
		URL:  "/dup",
	}, makeFileHeader(t, "icon.png", pngBytes))
	require.ErrorIs(t, err, ErrPageURLExists)

	// The stored icon must be compensated away when the insert fails.
	require.Len(t, store.stored, 1)
	require.Equal(t, store.stored, store.removed)
}

func TestPageServiceCreateRejectsDisallowedIconType(t *testing.T) {
	repo := newStubPageRepo()
	store := &stubFileStore{}
	svc := newPageServiceForTest(repo, store, &stubRecorder{}, &stubNotifier{}, nil)

	_, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Docs",
		URL:  "/docs",
	}, makeFileHeader(t, "notes.txt", []byte("plain text, not an image")))
	require.ErrorIs(t, err, ErrIconTypeNotAllowed)

	// Type is sniffed before anything touches storage.
	require.Empty(t, store.stored)
	require.Empty(t, repo.pages)
}

func TestPageServiceCreateValidation(t *testing.T) {
	svc := newPageServiceForTest(newStubPageRepo(), &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, nil)

	_, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{URL: "/x"}, nil)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestPageServiceUpdateSparsePatch(t *testing.T) {
	repo := newStubPageRepo()
	recorder := &stubRecorder{}
	svc := newPageServiceForTest(repo, &stubFileStore{}, recorder, &stubNotifier{}, nil)

	created, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Settings",
		URL:  "/settings",
	}, nil)
	require.NoError(t, err)

	name := "Preferences"
	updated, err := svc.Update(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, created.ID, dto.PageUpdateRequest{Name: &name}, nil)
	require.NoError(t, err)
	require.Equal(t, "Preferences", updated.Name)
	require.Equal(t, "/settings", updated.URL)
	require.Equal(t, created.Status, updated.Status)
}

func TestPageServiceUpdateEmptyPatchIsNoOp(t *testing.T) {
	repo := newStubPageRepo()
	svc := newPageServiceForTest(repo, &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, nil)

	created, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Home",
		URL:  "/home",
	}, nil)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, created.ID, dto.PageUpdateRequest{}, nil)
	require.NoError(t, err)
	require.Equal(t, created.Name, updated.Name)
	require.Equal(t, created.URL, updated.URL)
}

func TestPageServiceUpdateReplacesIcon(t *testing.T) {
	repo := newStubPageRepo()
	store := &stubFileStore{}
	svc := newPageServiceForTest(repo, store, &stubRecorder{}, &stubNotifier{}, nil)

	created, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Reports",
		URL:  "/reports",
	}, makeFileHeader(t, "old.png", pngBytes))
	require.NoError(t, err)
	require.NotNil(t, created.Icon)

	updated, err := svc.Update(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, created.ID, dto.PageUpdateRequest{}, makeFileHeader(t, "new.png", pngBytes))
	require.NoError(t, err)
	require.NotNil(t, updated.Icon)
	require.NotEqual(t, *created.Icon, *updated.Icon)

	// The previous icon is removed only after the row holds the new path.
	require.Equal(t, []string{*created.Icon}, store.removed)
}

func TestPageServiceUpdateNotFound(t *testing.T) {
	svc := newPageServiceForTest(newStubPageRepo(), &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, nil)

	name := "x"
	_, err := svc.Update(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, 42, dto.PageUpdateRequest{Name: &name}, nil)
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestPageServiceDeleteBlockedByRoleAssignments(t *testing.T) {
	repo := newStubPageRepo()
	store := &stubFileStore{}
	recorder := &stubRecorder{}
	svc := newPageServiceForTest(repo, store, recorder, &stubNotifier{}, nil)

	created, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Admin",
		URL:  "/admin",
	}, makeFileHeader(t, "icon.png", pngBytes))
	require.NoError(t, err)

	repo.roleCount = 2
	store.removed = nil
	recorder.entries = nil

	err = svc.Delete(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, created.ID)
	require.ErrorIs(t, err, ErrPageHasRoles)

	// Blocked delete leaves the row, the icon, and the audit trail untouched.
	require.Empty(t, repo.deleted)
	require.Empty(t, store.removed)
	require.Empty(t, recorder.entries)
}

func TestPageServiceDeleteRemovesIcon(t *testing.T) {
	repo := newStubPageRepo()
	store := &stubFileStore{}
	recorder := &stubRecorder{}
	svc := newPageServiceForTest(repo, store, recorder, &stubNotifier{}, nil)

	created, err := svc.Create(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, dto.PageCreateRequest{
		Name: "Gallery",
		URL:  "/gallery",
	}, makeFileHeader(t, "icon.png", pngBytes))
	require.NoError(t, err)

	store.removed = nil
	require.NoError(t, svc.Delete(context.Background(), ActivityActor{ID: 1}, RequestMeta{}, created.ID))
	require.Equal(t, []uint{created.ID}, repo.deleted)
	require.Len(t, store.removed, 1)

	require.Len(t, recorder.entries, 2)
	require.Equal(t, models.ActionDelete, recorder.entries[1].Action)
}

func TestPageServiceStatsCaching(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	repo := newStubPageRepo()
	repo.stats = repository.PageStats{Total: 5, Active: 3, Inactive: 2}

	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc := newPageServiceForTest(repo, &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, cache)

	ctx := context.Background()
	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, dto.PageStatsResponse{Total: 5, Active: 3, Inactive: 2}, first)

	// Change the underlying counts; the cached snapshot must win until expiry.
	repo.stats = repository.PageStats{Total: 9, Active: 9}
	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	mini.FastForward(2 * time.Minute)
	third, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, dto.PageStatsResponse{Total: 9, Active: 9}, third)
}

func TestPageServiceStatsWithoutCache(t *testing.T) {
	repo := newStubPageRepo()
	repo.stats = repository.PageStats{Total: 2, Active: 1, Inactive: 1}
	svc := newPageServiceForTest(repo, &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, dto.PageStatsResponse{Total: 2, Active: 1, Inactive: 1}, stats)
}

func TestPageServiceGetNotFound(t *testing.T) {
	svc := newPageServiceForTest(newStubPageRepo(), &stubFileStore{}, &stubRecorder{}, &stubNotifier{}, nil)

	_, err := svc.Get(context.Background(), 99)
	require.ErrorIs(t, err, ErrPageNotFound)
	require.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
