package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"

	"typhoon/internal/model"
	"typhoon/internal/service"
)

type noopScheduler struct{}

func (noopScheduler) Schedule(_, _ string, _ uint) {}

func newMessageRouter(db *gorm.DB) *gin.Engine {
	registerSvc := service.NewRegisterService(db, noopScheduler{})
	h := NewMessageHandler(registerSvc)

	router := gin.New()
	router.POST("/api/messages/register/v1", h.Register)
	router.PATCH("/api/messages/preference/v1", h.Preference)
	return router
}

// TestMessageRegisterEndpoint 测试消息登记接口
func TestMessageRegisterEndpoint(t *testing.T) {
	Convey("消息登记接口", t, func() {
		db := newTestDB(t)
		router := newMessageRouter(db)

		user := &model.User{Email: "alice@example.com"}
		So(db.Create(user).Error, ShouldBeNil)

		body := map[string]any{
			"email":   "alice@example.com",
			"message": "สวัสดีครับ",
			"role":    "user",
			"model":   map[string]any{"shortname": "typhoon-v2-8b-instruct", "fullname": "scb10x/llama-3-typhoon-v1.5-8b-instruct"},
		}

		Convey("登记新消息返回新会话与消息 id", func() {
			w := performJSON(router, http.MethodPost, "/api/messages/register/v1", body)
			So(w.Code, ShouldEqual, http.StatusOK)

			var resp model.RegisterMessageResponse
			decodeBody(t, w, &resp)
			So(resp.Message, ShouldEqual, "Message registered successfully")
			So(resp.SessionID, ShouldNotEqual, 0)
			So(resp.MessageID, ShouldNotEqual, 0)

			Convey("带 message_id 的改写返回改写提示", func() {
				body["message_id"] = resp.MessageID
				body["message"] = "regenerated"

				w := performJSON(router, http.MethodPost, "/api/messages/register/v1", body)
				So(w.Code, ShouldEqual, http.StatusOK)

				var again model.RegisterMessageResponse
				decodeBody(t, w, &again)
				So(again.Message, ShouldEqual, "Re-recorded message successfully")
				So(again.MessageID, ShouldEqual, resp.MessageID)
			})
		})

		Convey("未知邮箱返回 404", func() {
			body["email"] = "nobody@example.com"
			w := performJSON(router, http.MethodPost, "/api/messages/register/v1", body)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "40402")
		})

		Convey("缺少必填字段返回 400", func() {
			w := performJSON(router, http.MethodPost, "/api/messages/register/v1", map[string]any{"email": "alice@example.com"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("枚举之外的 role 返回 400 且不落库", func() {
			body["role"] = "assistant"
			w := performJSON(router, http.MethodPost, "/api/messages/register/v1", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			var count int64
			So(db.Model(&model.Message{}).Count(&count).Error, ShouldBeNil)
			So(count, ShouldEqual, 0)
		})
	})
}

// TestPreferenceEndpoint 测试消息评价接口
func TestPreferenceEndpoint(t *testing.T) {
	Convey("消息评价接口", t, func() {
		db := newTestDB(t)
		router := newMessageRouter(db)

		user := &model.User{Email: "alice@example.com"}
		So(db.Create(user).Error, ShouldBeNil)
		session := &model.ChatSession{UserID: user.ID, Subject: model.PlaceholderSubject}
		So(db.Create(session).Error, ShouldBeNil)
		msg := &model.Message{ChatSessionID: session.ID, Message: "answer", Role: model.RoleBot, Preference: model.PreferenceNA}
		So(db.Create(msg).Error, ShouldBeNil)

		Convey("评价已有消息", func() {
			w := performJSON(router, http.MethodPatch, "/api/messages/preference/v1", map[string]any{
				"message_id": msg.ID,
				"preference": "like",
			})
			So(w.Code, ShouldEqual, http.StatusOK)

			var saved model.Message
			So(db.First(&saved, msg.ID).Error, ShouldBeNil)
			So(saved.Preference, ShouldEqual, model.PreferenceLike)
		})

		Convey("不存在的消息返回 404", func() {
			w := performJSON(router, http.MethodPatch, "/api/messages/preference/v1", map[string]any{
				"message_id": 9999,
				"preference": "dislike",
			})
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "40404")
		})

		Convey("枚举之外的评价值返回 400 且不写库", func() {
			w := performJSON(router, http.MethodPatch, "/api/messages/preference/v1", map[string]any{
				"message_id": msg.ID,
				"preference": "meh",
			})
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			var saved model.Message
			So(db.First(&saved, msg.ID).Error, ShouldBeNil)
			So(saved.Preference, ShouldEqual, model.PreferenceNA)
		})
	})
}
