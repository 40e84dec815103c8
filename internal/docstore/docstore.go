// Package docstore đọc / ghi dữ liệu trang trên Firestore: bản sao trang và thông tin doanh nghiệp.
package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"message_mate/internal/api/meta/models"
	"message_mate/internal/common"
	"message_mate/internal/logger"
)

const (
	businessCollection = "business_information"
	businessDoc        = "fields"
)

// Store là document store của trang. Store nil (Firebase chưa cấu hình) trả về common.ErrDocumentStoreDisabled.
type Store struct {
	client *firestore.Client
	root   string
}

// New tạo Store; client nil thì trả về nil
func New(client *firestore.Client, root string) *Store {
	if client == nil {
		return nil
	}
	if root == "" {
		root = "pages"
	}
	return &Store{client: client, root: root}
}

// Enabled cho biết document store đã được cấu hình
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Store) page(pageID string) *firestore.DocumentRef {
	return s.client.Collection(s.root).Doc(pageID)
}

// BusinessInfo đọc {pages}/{pageId}/business_information/fields
func (s *Store) BusinessInfo(ctx context.Context, pageID string) (map[string]interface{}, error) {
	if !s.Enabled() {
		return nil, common.ErrDocumentStoreDisabled
	}
	snap, err := s.page(pageID).Collection(businessCollection).Doc(businessDoc).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, common.ErrNotFound
		}
		return nil, common.Wrap(common.ErrConnection, err)
	}
	return snap.Data(), nil
}

// SetBusinessInfo ghi đè toàn bộ thông tin doanh nghiệp của trang
func (s *Store) SetBusinessInfo(ctx context.Context, pageID string, fields map[string]interface{}) error {
	if !s.Enabled() {
		return common.ErrDocumentStoreDisabled
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if _, err := s.page(pageID).Collection(businessCollection).Doc(businessDoc).Set(ctx, fields); err != nil {
		return common.Wrap(common.ErrConnection, err)
	}
	logger.WithPage("docstore", pageID).Info("🗂️ [DOCSTORE] Đã cập nhật thông tin doanh nghiệp")
	return nil
}

// pageDocument là các trường của trang được mirror; access token không bao giờ rời store cục bộ
func pageDocument(page models.MetaPage, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"pageId":            page.PageId,
		"name":              page.Name,
		"category":          page.Category,
		"pictureUrl":        page.PictureURL,
		"businessAccountId": page.BusinessAccountId,
		"active":            page.Active,
		"isDefault":         page.IsDefault,
		"updatedAt":         now.UnixMilli(),
	}
}

// MirrorPage ghi (merge) bản sao trang vào {pages}/{pageId}
func (s *Store) MirrorPage(ctx context.Context, page models.MetaPage) error {
	if !s.Enabled() {
		return common.ErrDocumentStoreDisabled
	}
	if _, err := s.page(page.PageId).Set(ctx, pageDocument(page, time.Now()), firestore.MergeAll); err != nil {
		return common.Wrap(common.ErrConnection, err)
	}
	return nil
}
