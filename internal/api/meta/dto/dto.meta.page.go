package metadto

// PageSyncStatus là trạng thái đồng bộ của một trang
type PageSyncStatus struct {
	PageId   string `json:"pageId"`
	Loading  bool   `json:"loading"`
	Selected bool   `json:"selected"`
}
