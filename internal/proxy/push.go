package proxy

import (
	"strings"
	"time"
)

const (
	defaultPushBody   = "New content available!"
	notificationIcon  = "/assets/android-chrome-192x192.png"
	notificationBadge = "/assets/favicon-32x32.png"
)

// NotificationAction 是通知上的按钮。
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
}

// NotificationData 随通知携带的附加数据。
type NotificationData struct {
	DateOfArrival int64  `json:"dateOfArrival"`
	PrimaryKey    string `json:"primaryKey"`
}

// Notification 是推送展示所需的完整描述。
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon"`
	Badge   string               `json:"badge"`
	Vibrate []int                `json:"vibrate"`
	Data    NotificationData     `json:"data"`
	Actions []NotificationAction `json:"actions"`
}

// BuildNotification 根据推送文本构建通知；空文本使用默认提示。
func BuildNotification(payload string, now time.Time) Notification {
	body := strings.TrimSpace(payload)
	if body == "" {
		body = defaultPushBody
	}
	return Notification{
		Title:   "LeafTok",
		Body:    body,
		Icon:    notificationIcon,
		Badge:   notificationBadge,
		Vibrate: []int{100, 50, 100},
		Data: NotificationData{
			DateOfArrival: now.UnixMilli(),
			PrimaryKey:    "1",
		},
		Actions: []NotificationAction{
			{Action: "explore", Title: "Open LeafTok", Icon: notificationBadge},
			{Action: "close", Title: "Close", Icon: notificationBadge},
		},
	}
}

// ClickResult 描述通知点击后的处理：总是关闭通知，explore 额外打开首页。
type ClickResult struct {
	Close   bool   `json:"close"`
	OpenURL string `json:"open_url,omitempty"`
}

// RouteClick 根据 action 决定点击后的跳转。
func RouteClick(action string) ClickResult {
	result := ClickResult{Close: true}
	if action == "explore" {
		result.OpenURL = "/"
	}
	return result
}
