package operations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avadhbsd/DevinKitMCP/internal/adapters/llm"
	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

// fakeAPI records calls and serves canned answers.
type fakeAPI struct {
	tags       []domain.Tag
	listErr    error
	createErr  error
	createdTag domain.Tag

	createdNames []string
	taggedEmail  string
	taggedID     int64

	subscriberQueries []domain.SubscriberQuery
	broadcastLimits   []int
}

func (f *fakeAPI) ListTags(ctx context.Context) ([]domain.Tag, error) {
	return f.tags, f.listErr
}

func (f *fakeAPI) CreateTag(ctx context.Context, name string) (domain.Tag, error) {
	f.createdNames = append(f.createdNames, name)
	return f.createdTag, f.createErr
}

func (f *fakeAPI) TagSubscriberByEmail(ctx context.Context, email string, tagID int64) (map[string]any, error) {
	f.taggedEmail = email
	f.taggedID = tagID
	return map[string]any{"subscriber": map[string]any{"email_address": email}}, nil
}

func (f *fakeAPI) ListSubscribers(ctx context.Context, q domain.SubscriberQuery) ([]map[string]any, error) {
	f.subscriberQueries = append(f.subscriberQueries, q)
	return []map[string]any{{"email_address": "a@example.com"}}, nil
}

func (f *fakeAPI) CountSubscribers(ctx context.Context) (int64, error) {
	return 42, nil
}

func (f *fakeAPI) SubscriberByEmail(ctx context.Context, email string) (map[string]any, error) {
	return map[string]any{"email_address": email}, nil
}

func (f *fakeAPI) ListForms(ctx context.Context) ([]map[string]any, error) {
	return []map[string]any{{"name": "signup"}}, nil
}

func (f *fakeAPI) CreateForm(ctx context.Context, name, redirectURL string) (map[string]any, error) {
	return map[string]any{"name": name, "redirect_url": redirectURL}, nil
}

func (f *fakeAPI) ListBroadcasts(ctx context.Context, limit int) ([]map[string]any, error) {
	f.broadcastLimits = append(f.broadcastLimits, limit)
	return nil, nil
}

func (f *fakeAPI) CreateBroadcast(ctx context.Context, draft domain.BroadcastDraft) (map[string]any, error) {
	return map[string]any{"subject": draft.Subject}, nil
}

func (f *fakeAPI) AccountInfo(ctx context.Context) (map[string]any, error) {
	return map[string]any{"name": "Test Account"}, nil
}

func invoke(t *testing.T, api domain.AccountAPI, name string, params map[string]any) (any, error) {
	t.Helper()
	reg, err := NewRegistry(api, llm.NewMockLLM())
	require.NoError(t, err)
	op, ok := reg.Resolve(name)
	require.True(t, ok, "operation %q not registered", name)
	return op.Handler(context.Background(), params)
}

func TestRegistryCoversAllOperations(t *testing.T) {
	reg, err := NewRegistry(&fakeAPI{}, llm.NewMockLLM())
	require.NoError(t, err)
	assert.Equal(t, 12, reg.Len())

	for _, name := range []string{
		"get_tags", "count_tags", "create_tag", "tag_subscriber",
		"get_subscribers", "count_subscribers", "get_subscriber_details",
		"get_forms", "create_form",
		"get_broadcasts", "create_broadcast",
		"explain_concept",
	} {
		_, ok := reg.Resolve(name)
		assert.True(t, ok, name)
	}
}

func TestCountTags(t *testing.T) {
	api := &fakeAPI{tags: []domain.Tag{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}}

	result, err := invoke(t, api, "count_tags", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result)
}

func TestCountTagsPropagatesListError(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("boom")}

	_, err := invoke(t, api, "count_tags", nil)
	assert.Error(t, err)
}

func TestTagSubscriberExistingTag(t *testing.T) {
	api := &fakeAPI{tags: []domain.Tag{
		{ID: 11, Name: "VIP"},
		{ID: 12, Name: "VIP"}, // duplicate name, first match wins
	}}

	_, err := invoke(t, api, "tag_subscriber", map[string]any{
		"email": "a@example.com", "tag_name": "VIP",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), api.taggedID)
	assert.Equal(t, "a@example.com", api.taggedEmail)
	assert.Empty(t, api.createdNames, "no tag may be created when one matches")
}

func TestTagSubscriberMatchIsCaseSensitive(t *testing.T) {
	api := &fakeAPI{
		tags:       []domain.Tag{{ID: 11, Name: "vip"}},
		createdTag: domain.Tag{ID: 99, Name: "VIP"},
	}

	_, err := invoke(t, api, "tag_subscriber", map[string]any{
		"email": "a@example.com", "tag_name": "VIP",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"VIP"}, api.createdNames)
	assert.Equal(t, int64(99), api.taggedID)
}

func TestTagSubscriberCreatesMissingTag(t *testing.T) {
	api := &fakeAPI{createdTag: domain.Tag{ID: 7, Name: "new"}}

	_, err := invoke(t, api, "tag_subscriber", map[string]any{
		"email": "b@example.com", "tag_name": "new",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, api.createdNames)
	assert.Equal(t, int64(7), api.taggedID)
}

func TestTagSubscriberCreatedWithoutIDFails(t *testing.T) {
	api := &fakeAPI{createdTag: domain.Tag{Name: "ghost"}}

	_, err := invoke(t, api, "tag_subscriber", map[string]any{
		"email": "b@example.com", "tag_name": "ghost",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable id")
	assert.Empty(t, api.taggedEmail, "subscriber must not be tagged without an id")
}

func TestGetSubscribersDefaults(t *testing.T) {
	api := &fakeAPI{}

	_, err := invoke(t, api, "get_subscribers", map[string]any{})
	require.NoError(t, err)
	require.Len(t, api.subscriberQueries, 1)
	assert.Equal(t, domain.SubscriberQuery{
		Limit:     defaultSubscriberLimit,
		SortBy:    defaultSortBy,
		SortOrder: defaultSortOrder,
	}, api.subscriberQueries[0])
}

func TestGetSubscribersExplicitQuery(t *testing.T) {
	api := &fakeAPI{}

	_, err := invoke(t, api, "get_subscribers", map[string]any{
		"limit": 3, "sort_by": "email_address", "sort_order": "asc",
	})
	require.NoError(t, err)
	require.Len(t, api.subscriberQueries, 1)
	assert.Equal(t, domain.SubscriberQuery{
		Limit:     3,
		SortBy:    "email_address",
		SortOrder: "asc",
	}, api.subscriberQueries[0])
}

func TestGetBroadcastsDefaultLimit(t *testing.T) {
	api := &fakeAPI{}

	_, err := invoke(t, api, "get_broadcasts", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []int{defaultBroadcastLimit}, api.broadcastLimits)
}

func TestExplainConceptUsesFormatter(t *testing.T) {
	result, err := invoke(t, &fakeAPI{}, "explain_concept", map[string]any{"concept": "tags"})
	require.NoError(t, err)
	require.IsType(t, "", result)
	assert.NotEmpty(t, result)
}
