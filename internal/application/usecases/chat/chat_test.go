package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keywordModerator struct{ word string }

func (m keywordModerator) Reason(text string) string {
	if strings.Contains(text, m.word) {
		return "Threats or harassment"
	}
	return ""
}

type reportSink struct{ reports []*domain.ChatReport }

func (s *reportSink) PublishSessionCreated(context.Context, *domain.Session) error { return nil }
func (s *reportSink) PublishSessionDeleted(context.Context, *domain.Session) error { return nil }
func (s *reportSink) PublishChatReport(_ context.Context, r *domain.ChatReport) error {
	s.reports = append(s.reports, r)
	return nil
}

var (
	alice = &domain.User{ID: "alice", Username: "alice", Avatar: "a.png"}
	bob   = &domain.User{ID: "bob", Username: "bob"}
)

func newUseCase(t *testing.T) (ChatUseCase, *reportSink) {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	sessions := repository.NewSessionRepository(codec)
	s, err := domain.NewSession("abc12345", strings.Repeat("a", 64), "alice", "EFKT", "34", false)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(context.Background(), s))

	store := repository.NewPartitionStore()
	sink := &reportSink{}
	uc := NewChatUseCase(sessions, repository.NewChatRepository(store, codec), store,
		keywordModerator{word: "badword"}, sink, nil, nil)
	return uc, sink
}

func TestSend_ParsesMentions(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	first, err := uc.Send(ctx, "abc12345", alice, "hello")
	require.NoError(t, err)
	assert.Empty(t, first.AirportMentions)
	assert.Equal(t, "a.png", first.Avatar)

	second, err := uc.Send(ctx, "abc12345", bob, "@EFKT wind check")
	require.NoError(t, err)
	assert.Equal(t, []string{"EFKT"}, second.AirportMentions)

	history, err := uc.History(ctx, "abc12345", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"EFKT"}, history[1].AirportMentions)
	assert.Equal(t, "@EFKT wind check", history[1].Message)
}

func TestSend_EnforcesLengthServerSide(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Send(ctx, "abc12345", alice, strings.Repeat("x", 501))
	assert.ErrorIs(t, err, domain.ErrMessageTooLong)

	_, err = uc.Send(ctx, "abc12345", alice, strings.Repeat("x", 500))
	assert.NoError(t, err)

	_, err = uc.Send(ctx, "abc12345", alice, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = uc.Send(ctx, "abc12345", nil, "hi")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSend_AutomodTagsAndReports(t *testing.T) {
	uc, sink := newUseCase(t)

	msg, err := uc.Send(context.Background(), "abc12345", bob, "you badword")
	require.NoError(t, err)
	assert.True(t, msg.Automodded)
	assert.Equal(t, "Threats or harassment", msg.AutomodReason)

	require.Len(t, sink.reports, 1)
	assert.Equal(t, msg.ID, sink.reports[0].MessageID)
	assert.Equal(t, domain.AutomodReporter, sink.reports[0].ReportedBy)
	assert.Equal(t, domain.ReportScopeSession, sink.reports[0].Scope)
}

func TestDelete_OnlyAuthor(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	msg, err := uc.Send(ctx, "abc12345", alice, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(ctx, "abc12345", msg.ID, "bob"), domain.ErrNotMessageOwner)
	assert.ErrorIs(t, uc.Delete(ctx, "abc12345", msg.ID, ""), domain.ErrNotMessageOwner)

	// a late joiner still sees it
	history, err := uc.History(ctx, "abc12345", 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)

	require.NoError(t, uc.Delete(ctx, "abc12345", msg.ID, "alice"))
	assert.ErrorIs(t, uc.Delete(ctx, "abc12345", msg.ID, "alice"), domain.ErrMessageNotFound)
}
