package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mailsync/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEntity(email string) *model.Entity {
	return &model.Entity{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      "kim",
		Company:   "acme.co.kr",
		CreatedAt: time.Now().UTC(),
	}
}

func TestSQLiteStore_EntityRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	entity := newTestEntity("kim@acme.co.kr")
	require.NoError(t, s.InsertEntity(ctx, entity))

	got, err := s.GetEntityByEmail(ctx, "kim@acme.co.kr")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.ID, got.ID)
	assert.Equal(t, "kim", got.Name)
	assert.Empty(t, got.Phone)
}

func TestSQLiteStore_GetEntityByEmail_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetEntityByEmail(context.Background(), "nobody@nowhere.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_InsertEntity_Duplicate(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEntity(ctx, newTestEntity("dup@acme.co.kr")))

	err := s.InsertEntity(ctx, newTestEntity("dup@acme.co.kr"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSQLiteStore_UpdateEntityFields(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	entity := newTestEntity("kim@acme.co.kr")
	require.NoError(t, s.InsertEntity(ctx, entity))

	patch := EntityPatch{Phone: "010-1234-5678", Position: "대표"}
	require.NoError(t, s.UpdateEntityFields(ctx, entity.ID, patch))

	got, err := s.GetEntityByEmail(ctx, "kim@acme.co.kr")
	require.NoError(t, err)
	assert.Equal(t, "010-1234-5678", got.Phone)
	assert.Equal(t, "대표", got.Position)
	assert.Empty(t, got.Category)
}

func TestSQLiteStore_UpdateEntityFields_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.UpdateEntityFields(context.Background(), "missing", EntityPatch{Phone: "010-0000-0000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity not found")
}

func TestSQLiteStore_MailRecordDedup(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	entity := newTestEntity("kim@acme.co.kr")
	require.NoError(t, s.InsertEntity(ctx, entity))

	exists, err := s.MailRecordExists(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, exists)

	received := time.Now().UTC().Truncate(time.Second)
	rec := &model.MailRecord{
		ID:                uuid.New().String(),
		MessageID:         "msg-1",
		Title:             "견적 문의",
		OriginalContent:   "안녕하세요, 견적 부탁드립니다.",
		SummarizedContent: "견적 요청 메일입니다.",
		ReceivedDate:      &received,
		EntityID:          entity.ID,
		ReceiverMail:      "sales@sells.co.kr",
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, s.InsertMailRecord(ctx, rec))

	exists, err = s.MailRecordExists(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Re-inserting the same message is a no-op, not an error.
	dup := *rec
	dup.ID = uuid.New().String()
	require.NoError(t, s.InsertMailRecord(ctx, &dup))

	records, err := s.ListMailRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "견적 문의", records[0].Title)
	require.NotNil(t, records[0].ReceivedDate)
}

func TestSQLiteStore_ListEntities(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEntity(ctx, newTestEntity("a@x.com")))
	require.NoError(t, s.InsertEntity(ctx, newTestEntity("b@y.com")))

	entities, err := s.ListEntities(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	entities, err = s.ListEntities(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}
