package parser

import (
	"sort"
	"time"
)

// SameDay so sánh (tháng, ngày) của hai thời điểm trong múi giờ loc; năm không được xét
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	_, am, ad := a.In(loc).Date()
	_, bm, bd := b.In(loc).Date()
	return am == bm && ad == bd
}

// SortMessages sắp xếp tăng dần theo createdTime, cùng thời điểm thì theo id
func SortMessages(msgs []ParsedMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedTime.Equal(msgs[j].CreatedTime) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedTime.Before(msgs[j].CreatedTime)
	})
}

// MarkDayStarters sắp xếp batch rồi đánh dấu tin đầu tiên của mỗi ngày.
// Tin đầu batch luôn là dayStarter; reconciler tính lại trên toàn timeline khi commit.
func MarkDayStarters(msgs []ParsedMessage, loc *time.Location) {
	SortMessages(msgs)
	for i := range msgs {
		msgs[i].DayStarter = i == 0 || !SameDay(msgs[i-1].CreatedTime, msgs[i].CreatedTime, loc)
	}
}
