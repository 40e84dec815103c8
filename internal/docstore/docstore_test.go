package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
)

func TestDisabledStore(t *testing.T) {
	ctx := context.Background()
	s := New(nil, "pages")
	assert.False(t, s.Enabled())

	_, err := s.BusinessInfo(ctx, "p1")
	assert.True(t, errors.Is(err, common.ErrDocumentStoreDisabled))
	assert.True(t, errors.Is(s.SetBusinessInfo(ctx, "p1", nil), common.ErrDocumentStoreDisabled))
	assert.True(t, errors.Is(s.MirrorPage(ctx, models.MetaPage{PageId: "p1"}), common.ErrDocumentStoreDisabled))
}

func TestPageDocumentOmitsToken(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	doc := pageDocument(models.MetaPage{PageId: "p1", Name: "Shop", AccessToken: "secret", Active: true}, now)

	assert.Equal(t, "Shop", doc["name"])
	assert.Equal(t, true, doc["active"])
	assert.Equal(t, int64(1700000000000), doc["updatedAt"])
	for _, v := range doc {
		assert.NotEqual(t, "secret", v)
	}
}
