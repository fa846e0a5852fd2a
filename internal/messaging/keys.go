package messaging

import (
	"fmt"
	"strconv"
)

// Counter names in the global hash. Room and message identifiers come from
// independent counters so neither allocation rate affects the other.
const (
	counterRoomID    = "nextChatRoomId"
	counterMessageID = "nextMsgId"
)

// Key schema. All state except the counters is partitioned by room or by
// user, so concurrent operations on different rooms or users never contend.

func roomMembersKey(roomID int64) string {
	return fmt.Sprintf("chat:room:%d:uids", roomID)
}

func messageKey(mid int64) string {
	return fmt.Sprintf("message:%d", mid)
}

func userRoomsKey(uid int64) string {
	return fmt.Sprintf("uid:%d:chat:rooms", uid)
}

func userRoomMidsKey(uid, roomID int64) string {
	return fmt.Sprintf("uid:%d:chat:room:%d:mids", uid, roomID)
}

func userUnreadKey(uid int64) string {
	return fmt.Sprintf("uid:%d:chat:rooms:unread", uid)
}

func userReadKey(uid int64) string {
	return fmt.Sprintf("uid:%d:chat:rooms:read", uid)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
