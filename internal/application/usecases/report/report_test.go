package report

import (
	"context"
	"testing"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileListResolve(t *testing.T) {
	ctx := context.Background()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)
	uc := NewReportUseCase(repository.NewReportRepository(codec), nil)

	msg := &domain.ChatMessage{ID: "m1", UserID: "u1", Username: "bob", Message: "flagged text", AutomodReason: "Hate speech"}
	require.NoError(t, uc.File(ctx, domain.NewAutomodReport(msg, domain.ReportScopeGlobal)))
	assert.ErrorIs(t, uc.File(ctx, &domain.ChatReport{MessageID: "m2"}), domain.ErrInvalidInput)

	pending, err := uc.List(ctx, domain.ReportPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "flagged text", pending[0].Message)
	assert.Equal(t, domain.AutomodReporter, pending[0].ReportedBy)

	assert.ErrorIs(t, uc.Resolve(ctx, pending[0].ID, &domain.User{ID: "u9"}), domain.ErrForbidden)
	require.NoError(t, uc.Resolve(ctx, pending[0].ID, &domain.User{ID: "root", IsAdmin: true}))
	assert.ErrorIs(t, uc.Resolve(ctx, "missing", &domain.User{ID: "root", IsAdmin: true}), domain.ErrReportNotFound)

	pending, err = uc.List(ctx, domain.ReportPending, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = uc.List(ctx, "bogus", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
