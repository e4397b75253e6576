package service

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"typhoon/internal/model"
	"typhoon/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.ChatSession{}, &model.Message{}, &model.LLM{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// fakeScheduler 记录调度调用
type fakeScheduler struct {
	mu    sync.Mutex
	calls []uint
}

func (f *fakeScheduler) Schedule(_, _ string, sessionID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionID)
}

func (f *fakeScheduler) scheduled() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.calls...)
}

// TestRegisterMessage 测试消息登记
func TestRegisterMessage(t *testing.T) {
	Convey("消息登记", t, func() {
		ctx := context.Background()
		db := openTestDB(t)
		namer := &fakeScheduler{}
		svc := NewRegisterService(db, namer)

		user := seedUser(t, db, "alice@example.com")
		modelName := model.ModelName{Shortname: "typhoon-v2-8b-instruct", Fullname: "scb10x/llama-3-typhoon-v1.5-8b-instruct"}

		Convey("追加路径: 无 session_id 时新建会话并调度一次命名", func() {
			result, err := svc.RegisterMessage(ctx, &model.RegisterMessageRequest{
				Email:   user.Email,
				Message: "สวัสดีครับ",
				Role:    model.RoleUser,
				Model:   modelName,
			})
			So(err, ShouldBeNil)
			So(result.SessionID, ShouldNotEqual, 0)
			So(result.MessageID, ShouldNotEqual, 0)

			session, err := repository.NewSessionRepo(db).FindByID(ctx, result.SessionID)
			So(err, ShouldBeNil)
			So(session.UserID, ShouldEqual, user.ID)
			So(session.Subject, ShouldEqual, model.PlaceholderSubject)

			msg, err := repository.NewMessageRepo(db).FindByID(ctx, result.MessageID)
			So(err, ShouldBeNil)
			So(msg.ChatSessionID, ShouldEqual, result.SessionID)
			So(msg.Message, ShouldEqual, "สวัสดีครับ")
			So(msg.Preference, ShouldEqual, model.PreferenceNA)

			So(namer.scheduled(), ShouldResemble, []uint{result.SessionID})

			Convey("追加到已有会话不再调度命名", func() {
				second, err := svc.RegisterMessage(ctx, &model.RegisterMessageRequest{
					Email:      user.Email,
					Message:    "ตอบกลับ",
					Role:       model.RoleBot,
					Tokens:     42,
					TokenSpeed: 12.5,
					SessionID:  result.SessionID,
					Model:      modelName,
				})
				So(err, ShouldBeNil)
				So(second.SessionID, ShouldEqual, result.SessionID)
				So(len(namer.scheduled()), ShouldEqual, 1)

				msg, err := repository.NewMessageRepo(db).FindByID(ctx, second.MessageID)
				So(err, ShouldBeNil)
				So(msg.TotalTokens, ShouldEqual, 42)
				So(msg.TokenSpeed, ShouldEqual, 12.5)
			})

			Convey("改写路径: 覆盖文本与账目, 不触碰会话也不调度", func() {
				updated, err := svc.RegisterMessage(ctx, &model.RegisterMessageRequest{
					Email:      user.Email,
					Message:    "regenerated",
					Tokens:     7,
					TokenSpeed: 3.5,
					Role:       model.RoleBot,
					MessageID:  result.MessageID,
					Model:      modelName,
				})
				So(err, ShouldBeNil)
				So(updated.MessageID, ShouldEqual, result.MessageID)
				So(updated.SessionID, ShouldEqual, result.SessionID)

				msg, err := repository.NewMessageRepo(db).FindByID(ctx, result.MessageID)
				So(err, ShouldBeNil)
				So(msg.Message, ShouldEqual, "regenerated")
				So(msg.TotalTokens, ShouldEqual, 7)
				So(msg.TokenSpeed, ShouldEqual, 3.5)

				So(len(namer.scheduled()), ShouldEqual, 1)
			})
		})

		Convey("未登记的邮箱返回用户不存在", func() {
			_, err := svc.RegisterMessage(ctx, &model.RegisterMessageRequest{
				Email:   "nobody@example.com",
				Message: "hi",
				Role:    model.RoleUser,
				Model:   modelName,
			})
			So(err, ShouldEqual, ErrUserNotFound)
			So(namer.scheduled(), ShouldBeEmpty)
		})

		Convey("别人的会话当作不存在", func() {
			other := seedUser(t, db, "bob@example.com")
			session := &model.ChatSession{UserID: other.ID, Subject: model.PlaceholderSubject}
			So(db.Create(session).Error, ShouldBeNil)

			_, err := svc.RegisterMessage(ctx, &model.RegisterMessageRequest{
				Email:     user.Email,
				Message:   "hi",
				Role:      model.RoleUser,
				SessionID: session.ID,
				Model:     modelName,
			})
			So(err, ShouldEqual, ErrSessionNotFound)

			var count int64
			So(db.Model(&model.Message{}).Count(&count).Error, ShouldBeNil)
			So(count, ShouldEqual, 0)
		})

		Convey("改写不存在的消息返回消息不存在", func() {
			_, err := svc.RegisterMessage(ctx, &model.RegisterMessageRequest{
				Email:     user.Email,
				Message:   "hi",
				Role:      model.RoleBot,
				MessageID: 9999,
				Model:     modelName,
			})
			So(err, ShouldEqual, ErrMessageNotFound)
		})
	})
}

// TestRegisterUser 测试用户登记的幂等性
func TestRegisterUser(t *testing.T) {
	Convey("用户登记", t, func() {
		ctx := context.Background()
		db := openTestDB(t)
		svc := NewRegisterService(db, &fakeScheduler{})

		Convey("首次登记创建用户", func() {
			user, existing, err := svc.RegisterUser(ctx, "alice@example.com")
			So(err, ShouldBeNil)
			So(existing, ShouldBeFalse)
			So(user.ID, ShouldNotEqual, 0)

			Convey("重复登记返回原有用户", func() {
				again, existing, err := svc.RegisterUser(ctx, "alice@example.com")
				So(err, ShouldBeNil)
				So(existing, ShouldBeTrue)
				So(again.ID, ShouldEqual, user.ID)

				var count int64
				So(db.Model(&model.User{}).Count(&count).Error, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}

// TestSetPreference 测试消息评价
func TestSetPreference(t *testing.T) {
	Convey("消息评价", t, func() {
		ctx := context.Background()
		db := openTestDB(t)
		svc := NewRegisterService(db, &fakeScheduler{})

		user := seedUser(t, db, "alice@example.com")
		session := &model.ChatSession{UserID: user.ID, Subject: model.PlaceholderSubject}
		So(db.Create(session).Error, ShouldBeNil)
		msg := &model.Message{ChatSessionID: session.ID, Message: "answer", Role: model.RoleBot, Preference: model.PreferenceNA}
		So(db.Create(msg).Error, ShouldBeNil)

		Convey("评价已有消息", func() {
			So(svc.SetPreference(ctx, msg.ID, model.PreferenceLike), ShouldBeNil)

			saved, err := repository.NewMessageRepo(db).FindByID(ctx, msg.ID)
			So(err, ShouldBeNil)
			So(saved.Preference, ShouldEqual, model.PreferenceLike)
		})

		Convey("不存在的消息返回消息不存在", func() {
			So(svc.SetPreference(ctx, 9999, model.PreferenceDislike), ShouldEqual, ErrMessageNotFound)
		})
	})
}
