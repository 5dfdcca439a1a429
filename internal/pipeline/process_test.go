package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/sells-group/mailsync/internal/model"
)

// rawMessage builds a minimal full-format Gmail message.
func rawMessage(id, from, subject, body string) *gmailapi.Message {
	return &gmailapi.Message{
		Id: id,
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: subject},
				{Name: "From", Value: from},
				{Name: "Date", Value: "Mon, 02 Jan 2006 15:04:05 +0900"},
			},
			MimeType: "text/plain",
			Body:     &gmailapi.MessagePartBody{Data: b64(body)},
		},
	}
}

func noSignalExtraction() string {
	return `{"phone_numbers": null, "sender_position": null, "company_categories": null}`
}

func TestProcessBatch_FailureIsolation(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "", int64(10)).
		Return([]string{"m1", "m2", "m3"}, nil)
	gc.On("GetMessage", mock.Anything, "m1").
		Return(rawMessage("m1", "a@x.com", "first", "body"), nil)
	gc.On("GetMessage", mock.Anything, "m2").
		Return(rawMessage("m2", "not an address", "second", "body"), nil)
	gc.On("GetMessage", mock.Anything, "m3").
		Return(rawMessage("m3", "c@z.com", "third", "body"), nil)

	ac := &mockAnthropicClient{}
	ac.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(noSignalExtraction()), nil)

	st := &mockStore{}
	st.On("MailRecordExists", mock.Anything, mock.Anything).Return(false, nil)
	st.On("GetEntityByEmail", mock.Anything, mock.Anything).Return(nil, nil)
	st.On("InsertEntity", mock.Anything, mock.Anything).Return(nil)
	st.On("InsertMailRecord", mock.Anything, mock.Anything).Return(nil)

	p, err := New(gc, ac, st, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	stats, err := p.ProcessBatch(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 2, Failed: 1}, stats)
}

func TestProcessBatch_InvalidSenderShortCircuits(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "", int64(10)).Return([]string{"m1"}, nil)
	gc.On("GetMessage", mock.Anything, "m1").
		Return(rawMessage("m1", "garbled header", "subject", "body"), nil)

	ac := &mockAnthropicClient{}
	st := &mockStore{}
	st.On("MailRecordExists", mock.Anything, "m1").Return(false, nil)

	p, err := New(gc, ac, st, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	stats, err := p.ProcessBatch(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 0, Failed: 1}, stats)

	// No extraction, no summary, no writes for a rejected sender.
	ac.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "GetEntityByEmail", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "InsertMailRecord", mock.Anything, mock.Anything)
}

func TestProcessBatch_MailRecordContents(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "is:unread", int64(1)).Return([]string{"m1"}, nil)
	gc.On("GetMessage", mock.Anything, "m1").
		Return(rawMessage("m1", "김철수 <kim@acme.co.kr>", "견적 문의", "안녕하세요"), nil)

	ac := &mockAnthropicClient{}
	ac.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(noSignalExtraction()), nil)

	st := &mockStore{}
	st.On("MailRecordExists", mock.Anything, "m1").Return(false, nil)
	st.On("GetEntityByEmail", mock.Anything, "kim@acme.co.kr").Return(&model.Entity{
		ID: "ent-1", Email: "kim@acme.co.kr", Phone: "p", Position: "x", Category: "c",
	}, nil)
	st.On("InsertMailRecord", mock.Anything, mock.MatchedBy(func(r *model.MailRecord) bool {
		return r.MessageID == "m1" &&
			r.Title == "견적 문의" &&
			strings.HasPrefix(r.OriginalContent, "From: 김철수 <kim@acme.co.kr>\nSubject: 견적 문의\n\n") &&
			strings.HasSuffix(r.OriginalContent, "안녕하세요") &&
			r.EntityID == "ent-1" &&
			r.ReceiverMail == "owner@sells.co.kr" &&
			r.ReceivedDate != nil
	})).Return(nil)

	p, err := New(gc, ac, st, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	stats, err := p.ProcessBatch(context.Background(), "is:unread", 1)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 1, Failed: 0}, stats)
	st.AssertExpectations(t)
}

func TestProcessBatch_SkipsAlreadyProcessed(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "", int64(10)).Return([]string{"m1"}, nil)
	gc.On("GetMessage", mock.Anything, "m1").
		Return(rawMessage("m1", "a@x.com", "subject", "body"), nil)

	ac := &mockAnthropicClient{}
	st := &mockStore{}
	st.On("MailRecordExists", mock.Anything, "m1").Return(true, nil)

	p, err := New(gc, ac, st, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	stats, err := p.ProcessBatch(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 1, Failed: 0}, stats)
	ac.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "InsertMailRecord", mock.Anything, mock.Anything)
}

func TestProcessBatch_ListFailureIsFatal(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "", int64(10)).
		Return(nil, eris.New("network down"))

	p, err := New(gc, &mockAnthropicClient{}, &mockStore{}, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	_, err = p.ProcessBatch(context.Background(), "", 10)
	require.Error(t, err)
}

func TestProcessBatch_NonPositiveLimitFallsBack(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "", int64(DefaultBatchLimit)).
		Return([]string{}, nil)

	p, err := New(gc, &mockAnthropicClient{}, &mockStore{}, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	stats, err := p.ProcessBatch(context.Background(), "", -3)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	gc.AssertExpectations(t)
}

func TestProcessBatch_PersistenceFailureFailsMessage(t *testing.T) {
	gc := &mockGmailClient{}
	gc.On("Profile", mock.Anything).Return("owner@sells.co.kr", nil)
	gc.On("ListMessageIDs", mock.Anything, "", int64(10)).Return([]string{"m1"}, nil)
	gc.On("GetMessage", mock.Anything, "m1").
		Return(rawMessage("m1", "a@x.com", "subject", "body"), nil)

	ac := &mockAnthropicClient{}
	ac.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(noSignalExtraction()), nil)

	st := &mockStore{}
	st.On("MailRecordExists", mock.Anything, "m1").Return(false, nil)
	st.On("GetEntityByEmail", mock.Anything, "a@x.com").Return(nil, nil)
	st.On("InsertEntity", mock.Anything, mock.Anything).Return(eris.New("disk full"))

	p, err := New(gc, ac, st, "claude-haiku-4-5-20251001")
	require.NoError(t, err)

	stats, err := p.ProcessBatch(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 0, Failed: 1}, stats)
}
