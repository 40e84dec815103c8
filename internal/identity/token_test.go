package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message_mate/internal/common"
)

type fakeExchanger struct {
	calls  int
	inputs []string
	ttl    time.Duration
	err    error
}

func (f *fakeExchanger) ExchangeToken(ctx context.Context, shortLived string) (string, time.Duration, error) {
	f.calls++
	f.inputs = append(f.inputs, shortLived)
	if f.err != nil {
		return "", 0, f.err
	}
	return "long-" + shortLived, f.ttl, nil
}

func TestExchangingTokenSource(t *testing.T) {
	ex := &fakeExchanger{ttl: time.Hour}
	src := NewExchanging("owner", "seed", ex)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }

	tok, err := src.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "long-seed", tok)

	// còn hạn: dùng lại
	_, _ = src.GetValidAccessToken(context.Background())
	assert.Equal(t, 1, ex.calls)

	// gần hết hạn: đổi lại từ token hiện tại
	now = now.Add(55 * time.Minute)
	tok, err = src.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "long-long-seed", tok)
	assert.Equal(t, 2, ex.calls)

	src.Invalidate()
	_, _ = src.GetValidAccessToken(context.Background())
	assert.Equal(t, 3, ex.calls)
	assert.Equal(t, "owner", src.UserID())
}

func TestExchangingTokenSourceFailure(t *testing.T) {
	src := NewExchanging("owner", "seed", &fakeExchanger{err: errors.New("boom")})
	_, err := src.GetValidAccessToken(context.Background())
	assert.True(t, errors.Is(err, common.ErrTokenExpired))

	_, err = NewExchanging("owner", "", &fakeExchanger{}).GetValidAccessToken(context.Background())
	assert.True(t, errors.Is(err, common.ErrTokenMissing))
}

func TestStaticTokenSource(t *testing.T) {
	tok, err := NewStatic("u", "t").GetValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t", tok)

	_, err = NewStatic("u", "").GetValidAccessToken(context.Background())
	assert.True(t, errors.Is(err, common.ErrTokenMissing))
}
