package routes

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/leaftok/leaftok-site/internal/proxy"
	"github.com/leaftok/leaftok-site/internal/server"
	"github.com/leaftok/leaftok-site/internal/strategy"
)

type statusPayload struct {
	proxy.Status
	Rules    []rulePayload   `json:"rules"`
	Fallback strategy.Policy `json:"fallback"`
	Policies []policyPayload `json:"policies"`
}

type rulePayload struct {
	Name   string          `json:"name"`
	Policy strategy.Policy `json:"policy"`
}

type policyPayload struct {
	Key               strategy.Policy    `json:"key"`
	Description       string             `json:"description"`
	WriteStore        strategy.StoreRole `json:"write_store"`
	CacheFirst        bool               `json:"cache_first"`
	BackgroundRefresh bool               `json:"background_refresh"`
	OfflineFallback   bool               `json:"offline_fallback"`
}

// RegisterCacheRoutes 暴露 /-/sw 诊断与消息接口，对应浏览器端 Service Worker 的消息通道。
// rules 是路由器实际使用的规则表，随状态一起输出。
func RegisterCacheRoutes(app *fiber.App, lifecycle *proxy.Lifecycle, rules strategy.Table) {
	if app == nil || lifecycle == nil {
		return
	}

	app.Get("/-/sw/status", func(c fiber.Ctx) error {
		return c.JSON(encodeStatus(lifecycle.Status(c.Context()), rules))
	})

	app.Post("/-/sw/message", func(c fiber.Ctx) error {
		var msg proxy.Message
		if err := json.Unmarshal(c.Body(), &msg); err != nil {
			return server.WriteError(c, fiber.StatusBadRequest, "invalid_json")
		}
		reply, err := lifecycle.HandleMessage(msg)
		if err != nil {
			if errors.Is(err, proxy.ErrUnknownMessage) {
				return server.WriteError(c, fiber.StatusBadRequest, "unknown_message")
			}
			return server.WriteError(c, fiber.StatusInternalServerError, "message_failed")
		}
		return c.JSON(reply)
	})

	// 推送内容是纯文本，空内容使用默认提示。
	app.Post("/-/sw/push", func(c fiber.Ctx) error {
		return c.JSON(proxy.BuildNotification(string(c.Body()), time.Now()))
	})

	app.Post("/-/sw/click", func(c fiber.Ctx) error {
		var payload struct {
			Action string `json:"action"`
		}
		if body := strings.TrimSpace(string(c.Body())); body != "" {
			if err := json.Unmarshal([]byte(body), &payload); err != nil {
				return server.WriteError(c, fiber.StatusBadRequest, "invalid_json")
			}
		}
		return c.JSON(proxy.RouteClick(payload.Action))
	})
}

func encodeStatus(status proxy.Status, rules strategy.Table) statusPayload {
	payload := statusPayload{
		Status:   status,
		Rules:    make([]rulePayload, 0, len(rules.Rules())),
		Fallback: rules.Fallback(),
		Policies: make([]policyPayload, 0, 3),
	}
	for _, rule := range rules.Rules() {
		payload.Rules = append(payload.Rules, rulePayload{Name: rule.Name, Policy: rule.Policy})
	}
	for _, profile := range strategy.List() {
		payload.Policies = append(payload.Policies, policyPayload{
			Key:               profile.Key,
			Description:       profile.Description,
			WriteStore:        profile.WriteStore,
			CacheFirst:        profile.CacheFirst,
			BackgroundRefresh: profile.BackgroundRefresh,
			OfflineFallback:   profile.OfflineFallback,
		})
	}
	return payload
}
