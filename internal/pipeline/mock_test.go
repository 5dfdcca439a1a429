package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/sells-group/mailsync/internal/model"
	"github.com/sells-group/mailsync/internal/store"
	"github.com/sells-group/mailsync/pkg/anthropic"
)

// mockGmailClient implements gmail.Client.
type mockGmailClient struct {
	mock.Mock
}

func (m *mockGmailClient) ListMessageIDs(ctx context.Context, query string, limit int64) ([]string, error) {
	args := m.Called(ctx, query, limit)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGmailClient) GetMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*gmailapi.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGmailClient) Profile(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// mockAnthropicClient implements anthropic.Client.
type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// textResponse builds a single-text-block response.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

// mockStore implements store.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetEntityByEmail(ctx context.Context, email string) (*model.Entity, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*model.Entity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) InsertEntity(ctx context.Context, entity *model.Entity) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *mockStore) UpdateEntityFields(ctx context.Context, entityID string, patch store.EntityPatch) error {
	return m.Called(ctx, entityID, patch).Error(0)
}

func (m *mockStore) ListEntities(ctx context.Context, limit int) ([]model.Entity, error) {
	args := m.Called(ctx, limit)
	if v := args.Get(0); v != nil {
		return v.([]model.Entity), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) MailRecordExists(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) InsertMailRecord(ctx context.Context, rec *model.MailRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) ListMailRecords(ctx context.Context, limit int) ([]model.MailRecord, error) {
	args := m.Called(ctx, limit)
	if v := args.Get(0); v != nil {
		return v.([]model.MailRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
