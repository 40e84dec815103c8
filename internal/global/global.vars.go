package global

// MongoDB_CollectionNames chứa tên các collection trong MongoDB
type MongoDB_CollectionNames struct {
	MetaPages         string // Trang Facebook / Instagram business
	MetaConversations string // Hội thoại
	MetaMessages      string // Tin nhắn riêng lẻ
	MetaUsers         string // Người nhắn tin với trang
}

// MongoDB_ColNames là tên collection mặc định
var MongoDB_ColNames = MongoDB_CollectionNames{
	MetaPages:         "meta_pages",
	MetaConversations: "meta_conversations",
	MetaMessages:      "meta_messages",
	MetaUsers:         "meta_users",
}
