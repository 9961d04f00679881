package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/models"
	"github.com/cmscrm/api/internal/repository"
)

type stubActivityRepo struct {
	entries   []models.ActivityLog
	createErr error
	lastList  repository.ActivityLogFilter
}

func (r *stubActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	if r.createErr != nil {
		return r.createErr
	}
	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	r.lastList = filter
	return r.entries, int64(len(r.entries)), nil
}

func TestActivityServiceRecordNormalizesAndPersists(t *testing.T) {
	repo := &stubActivityRepo{}
	svc := NewActivityService(repo, nil, zerolog.Nop())

	resourceID := uint(3)
	svc.Record(context.Background(), ActivityEntry{
		Actor:        ActivityActor{ID: 1, Username: "admin"},
		Action:       "create",
		ResourceType: "Page",
		ResourceID:   &resourceID,
		Payload:      map[string]interface{}{"name": "Dashboard"},
		Meta:         RequestMeta{IP: "10.0.0.1", UserAgent: "curl/8"},
	})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, models.ActionCreate, entry.Action)
	require.Equal(t, models.ResourcePage, entry.ResourceType)
	require.Equal(t, "admin", entry.ActorUsername)
	require.Equal(t, "10.0.0.1", entry.IPAddress)
	require.Equal(t, "Dashboard", entry.Payload["name"])
}

func TestActivityServiceRecordMasksCredentialKeys(t *testing.T) {
	repo := &stubActivityRepo{}
	svc := NewActivityService(repo, nil, zerolog.Nop())

	svc.Record(context.Background(), ActivityEntry{
		Actor:        ActivityActor{ID: 1, Username: "admin"},
		Action:       models.ActionUpdate,
		ResourceType: models.ResourceUser,
		Payload: map[string]interface{}{
			"username":     "kasra",
			"password":     "hunter2",
			"api_token":    "abc",
			"jwt_secret":   "xyz",
			"display_name": "Kasra",
		},
	})

	require.Len(t, repo.entries, 1)
	payload := repo.entries[0].Payload
	require.Equal(t, "***", payload["password"])
	require.Equal(t, "***", payload["api_token"])
	require.Equal(t, "***", payload["jwt_secret"])
	require.Equal(t, "kasra", payload["username"])
	require.Equal(t, "Kasra", payload["display_name"])
}

func TestActivityServiceRecordSwallowsRepositoryFailure(t *testing.T) {
	repo := &stubActivityRepo{createErr: errors.New("db down")}
	svc := NewActivityService(repo, nil, zerolog.Nop())

	// Must not panic and must not surface the failure to the caller.
	svc.Record(context.Background(), ActivityEntry{
		Actor:        ActivityActor{ID: 1},
		Action:       models.ActionDelete,
		ResourceType: models.ResourcePage,
	})
	require.Empty(t, repo.entries)
}

func TestActivityServiceRecordDropsIncompleteEntries(t *testing.T) {
	repo := &stubActivityRepo{}
	svc := NewActivityService(repo, nil, zerolog.Nop())

	svc.Record(context.Background(), ActivityEntry{Actor: ActivityActor{ID: 1}, Action: "", ResourceType: models.ResourcePage})
	svc.Record(context.Background(), ActivityEntry{Actor: ActivityActor{ID: 1}, Action: models.ActionCreate, ResourceType: "  "})
	require.Empty(t, repo.entries)
}

func TestActivityServiceListNormalizesFilter(t *testing.T) {
	repo := &stubActivityRepo{}
	svc := NewActivityService(repo, nil, zerolog.Nop())

	result, err := svc.List(context.Background(), dto.ActivityListRequest{
		Page:         0,
		Limit:        -5,
		ActorID:      9,
		Action:       "create",
		ResourceType: "PAGE",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Page)
	require.Equal(t, 10, result.Limit)

	require.NotNil(t, repo.lastList.ActorID)
	require.Equal(t, uint(9), *repo.lastList.ActorID)
	require.Equal(t, models.ActionCreate, repo.lastList.Action)
	require.Equal(t, models.ResourcePage, repo.lastList.ResourceType)
}
