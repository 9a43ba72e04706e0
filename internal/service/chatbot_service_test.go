package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetgrid-be/internal/constant"
	"sheetgrid-be/internal/dto"
	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/repository/contract"
	"sheetgrid-be/internal/repository/memory"
	"sheetgrid-be/internal/repository/specification"
	"sheetgrid-be/internal/repository/unitofwork"
	"sheetgrid-be/pkg/agent"
	"sheetgrid-be/pkg/llm"
	"sheetgrid-be/pkg/sheet"
	"sheetgrid-be/pkg/tools"
)

// chatStore is the shared backing state for the in-memory repositories.
type chatStore struct {
	sessions []*entity.ChatSession
	messages []*entity.ChatMessage
}

func (s *chatStore) clone() *chatStore {
	c := &chatStore{}
	for _, sess := range s.sessions {
		cp := *sess
		c.sessions = append(c.sessions, &cp)
	}
	for _, msg := range s.messages {
		cp := *msg
		c.messages = append(c.messages, &cp)
	}
	return c
}

// memUow implements the transaction protocol by snapshotting the store
// on Begin and restoring it on Rollback.
type memUow struct {
	store    *chatStore
	snapshot *chatStore
}

func (u *memUow) Begin(ctx context.Context) error {
	u.snapshot = u.store.clone()
	return nil
}

func (u *memUow) Commit() error {
	u.snapshot = nil
	return nil
}

func (u *memUow) Rollback() error {
	if u.snapshot != nil {
		*u.store = *u.snapshot
		u.snapshot = nil
	}
	return nil
}

func (u *memUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &memSessionRepo{store: u.store}
}

func (u *memUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &memMessageRepo{store: u.store}
}

func (u *memUow) ApiCredentialRepository() contract.ApiCredentialRepository {
	return nil
}

func (u *memUow) WorkbookSnapshotRepository() contract.WorkbookSnapshotRepository {
	return nil
}

type memFactory struct {
	store *chatStore
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{store: f.store}
}

type memSessionRepo struct {
	store *chatStore
}

func (r *memSessionRepo) Create(ctx context.Context, sess *entity.ChatSession) error {
	cp := *sess
	r.store.sessions = append(r.store.sessions, &cp)
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, sess *entity.ChatSession) error {
	for i, existing := range r.store.sessions {
		if existing.Id == sess.Id {
			cp := *sess
			r.store.sessions[i] = &cp
			return nil
		}
	}
	return errors.New("session not found")
}

func (r *memSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	kept := r.store.sessions[:0]
	for _, sess := range r.store.sessions {
		if sess.Id != id {
			kept = append(kept, sess)
		}
	}
	r.store.sessions = kept
	return nil
}

func (r *memSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	matches := r.filter(specs)
	if len(matches) == 0 {
		return nil, nil
	}
	cp := *matches[0]
	return &cp, nil
}

func (r *memSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	matches := r.filter(specs)
	out := make([]*entity.ChatSession, 0, len(matches))
	for _, m := range matches {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memSessionRepo) filter(specs []specification.Specification) []*entity.ChatSession {
	var out []*entity.ChatSession
	for _, sess := range r.store.sessions {
		keep := true
		for _, sp := range specs {
			switch v := sp.(type) {
			case specification.ByID:
				if sess.Id != v.ID {
					keep = false
				}
			case specification.UserOwnedBy:
				if sess.UserId != v.UserID {
					keep = false
				}
			}
		}
		if keep {
			out = append(out, sess)
		}
	}
	for _, sp := range specs {
		if ob, ok := sp.(specification.OrderBy); ok {
			sort.SliceStable(out, func(i, j int) bool {
				ti := sessionStamp(out[i])
				tj := sessionStamp(out[j])
				if ob.Desc {
					return ti.After(tj)
				}
				return ti.Before(tj)
			})
		}
	}
	return out
}

func sessionStamp(s *entity.ChatSession) time.Time {
	if s.UpdatedAt != nil {
		return *s.UpdatedAt
	}
	return s.CreatedAt
}

type memMessageRepo struct {
	store *chatStore
}

func (r *memMessageRepo) Create(ctx context.Context, msg *entity.ChatMessage) error {
	cp := *msg
	r.store.messages = append(r.store.messages, &cp)
	return nil
}

func (r *memMessageRepo) CreateBulk(ctx context.Context, msgs []*entity.ChatMessage) error {
	for _, m := range msgs {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *memMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var out []*entity.ChatMessage
	for _, msg := range r.store.messages {
		keep := true
		for _, sp := range specs {
			if v, ok := sp.(specification.ByChatSessionID); ok && msg.ChatSessionId != v.ChatSessionID {
				keep = false
			}
		}
		if keep {
			cp := *msg
			out = append(out, &cp)
		}
	}
	for _, sp := range specs {
		if ob, ok := sp.(specification.OrderBy); ok {
			sort.SliceStable(out, func(i, j int) bool {
				if ob.Desc {
					return out[i].CreatedAt.After(out[j].CreatedAt)
				}
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			})
		}
	}
	return out, nil
}

func (r *memMessageRepo) DeleteByChatSessionId(ctx context.Context, chatSessionId uuid.UUID) error {
	kept := r.store.messages[:0]
	for _, msg := range r.store.messages {
		if msg.ChatSessionId != chatSessionId {
			kept = append(kept, msg)
		}
	}
	r.store.messages = kept
	return nil
}

// stubProvider replays a fixed sequence of model turns. onTurn, when
// set, runs before each turn is returned.
type stubProvider struct {
	turns       []*llm.ChatResult
	calls       int
	err         error
	onTurn      func(ctx context.Context)
	lastHistory []llm.Message
}

func (s *stubProvider) ChatWithTools(ctx context.Context, history []llm.Message, defs []llm.ToolDefinition, opts ...llm.Option) (*llm.ChatResult, error) {
	s.calls++
	s.lastHistory = history
	if s.onTurn != nil {
		s.onTurn(ctx)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	turn := s.turns[s.calls-1]
	return turn, nil
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	r, err := s.ChatWithTools(ctx, history, nil, opts...)
	if err != nil {
		return "", err
	}
	return r.Content, nil
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

type chatFixture struct {
	store    *chatStore
	exchange *memory.ExchangeRepository
	service  IChatbotService
	userId   uuid.UUID
}

func newChatFixture(t *testing.T, provider llm.LLMProvider) *chatFixture {
	t.Helper()

	engine := sheet.NewEngine()
	engine.Load(sheet.NewWorkbook("Workbook"))
	dispatcher := tools.NewDispatcher(engine, nil, nil)
	loop := agent.NewLoop(provider, dispatcher, 8, nil)

	store := &chatStore{}
	exchange := memory.NewExchangeRepository()
	svc := NewChatbotService(&memFactory{store: store}, loop, dispatcher, exchange, nil, nil)

	return &chatFixture{
		store:    store,
		exchange: exchange,
		service:  svc,
		userId:   uuid.New(),
	}
}

// seedSession adds a session owned by the fixture user, seeded with the
// greeting message the way CreateSession leaves it.
func (f *chatFixture) seedSession(title string, createdAt time.Time) uuid.UUID {
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    f.userId,
		Title:     title,
		CreatedAt: createdAt,
	}
	f.store.sessions = append(f.store.sessions, sess)
	f.store.messages = append(f.store.messages, &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          constant.ChatGreetingMessage,
		Role:          constant.ChatMessageRoleAssistant,
		ChatSessionId: sess.Id,
		CreatedAt:     createdAt,
	})
	return sess.Id
}

func (f *chatFixture) messagesOf(sessionId uuid.UUID) []*entity.ChatMessage {
	var out []*entity.ChatMessage
	for _, m := range f.store.messages {
		if m.ChatSessionId == sessionId {
			out = append(out, m)
		}
	}
	return out
}

func TestCreateSessionSeedsGreeting(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})

	resp, err := f.service.CreateSession(context.Background(), f.userId)
	require.NoError(t, err)

	require.Len(t, f.store.sessions, 1)
	assert.Equal(t, resp.Id, f.store.sessions[0].Id)
	assert.Equal(t, constant.ChatSessionDefaultTitle, f.store.sessions[0].Title)

	msgs := f.messagesOf(resp.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatMessageRoleAssistant, msgs[0].Role)
	assert.Equal(t, constant.ChatGreetingMessage, msgs[0].Chat)
}

func TestSendChatFirstExchangeSetsTitle(t *testing.T) {
	f := newChatFixture(t, &stubProvider{turns: []*llm.ChatResult{
		{Content: "Done, A1 now holds 42."},
	}})
	sessionId := f.seedSession(constant.ChatSessionDefaultTitle, time.Now().Add(-time.Minute))

	longChat := strings.Repeat("x", constant.ChatSessionTitleMaxLen+15)
	resp, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          longChat,
	})
	require.NoError(t, err)

	assert.False(t, resp.Cancelled)
	require.NotNil(t, resp.Sent)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, constant.ChatMessageRoleUser, resp.Sent.Role)
	assert.Equal(t, "Done, A1 now holds 42.", resp.Reply.Chat)

	// Greeting, user message, assistant reply.
	assert.Len(t, f.messagesOf(sessionId), 3)

	want := longChat[:constant.ChatSessionTitleMaxLen]
	assert.Equal(t, want, resp.ChatSessionTitle)
	assert.Equal(t, want, f.store.sessions[0].Title)
	assert.NotNil(t, f.store.sessions[0].UpdatedAt)
}

func TestSendChatKeepsTitleAfterFirstExchange(t *testing.T) {
	f := newChatFixture(t, &stubProvider{turns: []*llm.ChatResult{
		{Content: "Sure."},
	}})
	sessionId := f.seedSession("Budget review", time.Now().Add(-time.Hour))
	f.store.messages = append(f.store.messages,
		&entity.ChatMessage{Id: uuid.New(), Chat: "hello", Role: constant.ChatMessageRoleUser, ChatSessionId: sessionId, CreatedAt: time.Now().Add(-time.Minute)},
		&entity.ChatMessage{Id: uuid.New(), Chat: "hi", Role: constant.ChatMessageRoleAssistant, ChatSessionId: sessionId, CreatedAt: time.Now().Add(-time.Minute)},
	)

	resp, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "one more thing",
	})
	require.NoError(t, err)
	assert.Equal(t, "Budget review", resp.ChatSessionTitle)
	assert.Equal(t, "Budget review", f.store.sessions[0].Title)
}

func TestSendChatRejectsForeignSession(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	sessionId := f.seedSession("Mine", time.Now())

	_, err := f.service.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "let me in",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	// Rollback leaves the transcript untouched.
	assert.Len(t, f.messagesOf(sessionId), 1)
}

func TestSendChatModelErrorStoresApology(t *testing.T) {
	f := newChatFixture(t, &stubProvider{err: errors.New("model busy")})
	sessionId := f.seedSession(constant.ChatSessionDefaultTitle, time.Now())

	resp, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "add a totals row",
	})
	require.NoError(t, err)

	require.NotNil(t, resp.Reply)
	assert.Contains(t, resp.Reply.Chat, "Sorry, I could not complete that request")
	assert.Contains(t, resp.Reply.Chat, "model busy")

	msgs := f.messagesOf(sessionId)
	require.Len(t, msgs, 3)
	assert.Equal(t, "add a totals row", msgs[1].Chat)
}

func TestSendChatCancelRollsBackUserMessage(t *testing.T) {
	provider := &stubProvider{}
	f := newChatFixture(t, provider)
	sessionId := f.seedSession(constant.ChatSessionDefaultTitle, time.Now())

	// The model turn never comes back; the user cancels while the
	// exchange is awaiting it.
	provider.onTurn = func(ctx context.Context) {
		err := f.service.CancelChat(context.Background(), f.userId, &dto.CancelChatRequest{ChatSessionId: sessionId})
		require.NoError(t, err)
	}

	resp, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "never mind",
	})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.Nil(t, resp.Sent)
	assert.Nil(t, resp.Reply)

	// The abandoned user message is rolled back with the transaction.
	assert.Len(t, f.messagesOf(sessionId), 1)
	_, found := f.exchange.Get(sessionId.String())
	assert.False(t, found)
}

func TestSendChatReportsToolSteps(t *testing.T) {
	f := newChatFixture(t, &stubProvider{turns: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{Id: "call_1", Name: "list_sheets", Arguments: "{}"}}},
		{Content: "You have one sheet."},
	}})
	sessionId := f.seedSession(constant.ChatSessionDefaultTitle, time.Now())

	resp, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "what sheets do I have?",
	})
	require.NoError(t, err)

	require.Len(t, resp.Steps, 1)
	assert.Equal(t, "list_sheets", resp.Steps[0].Name)
	assert.False(t, resp.Steps[0].Remote)
	assert.Contains(t, resp.Steps[0].Result, "Sheet1")
	assert.Equal(t, "You have one sheet.", resp.Reply.Chat)
}

func TestSendChatPersistsToolStubs(t *testing.T) {
	f := newChatFixture(t, &stubProvider{turns: []*llm.ChatResult{
		{ToolCalls: []llm.ToolCall{{Id: "call_1", Name: "list_sheets", Arguments: "{}"}}},
		{Content: "You have one sheet."},
	}})
	sessionId := f.seedSession(constant.ChatSessionDefaultTitle, time.Now())

	_, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "what sheets do I have?",
	})
	require.NoError(t, err)

	// Greeting, user message, tool stub, assistant reply.
	msgs := f.messagesOf(sessionId)
	require.Len(t, msgs, 4)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, constant.ChatMessageRoleTool, msgs[2].Role)
	assert.Equal(t, constant.ChatMessageRoleAssistant, msgs[3].Role)

	var stub agent.ToolStep
	require.NoError(t, json.Unmarshal([]byte(msgs[2].Chat), &stub))
	assert.Equal(t, "list_sheets", stub.Name)
	assert.Contains(t, stub.Result, "Sheet1")
}

func TestSendChatReplaySkipsToolStubs(t *testing.T) {
	provider := &stubProvider{turns: []*llm.ChatResult{
		{Content: "Noted."},
	}}
	f := newChatFixture(t, provider)
	sessionId := f.seedSession("Sheets", time.Now().Add(-time.Hour))
	f.store.messages = append(f.store.messages,
		&entity.ChatMessage{Id: uuid.New(), Chat: "what sheets?", Role: constant.ChatMessageRoleUser, ChatSessionId: sessionId, CreatedAt: time.Now().Add(-3 * time.Minute)},
		&entity.ChatMessage{Id: uuid.New(), Chat: `{"name":"list_sheets","arguments":"{}","result":"{}"}`, Role: constant.ChatMessageRoleTool, ChatSessionId: sessionId, CreatedAt: time.Now().Add(-2 * time.Minute)},
		&entity.ChatMessage{Id: uuid.New(), Chat: "One sheet.", Role: constant.ChatMessageRoleAssistant, ChatSessionId: sessionId, CreatedAt: time.Now().Add(-time.Minute)},
	)

	_, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "thanks",
	})
	require.NoError(t, err)

	require.NotEmpty(t, provider.lastHistory)
	for _, msg := range provider.lastHistory {
		assert.NotEqual(t, constant.ChatMessageRoleTool, msg.Role)
	}
	// System, greeting, user, assistant, new user turn.
	assert.Len(t, provider.lastHistory, 5)
}

func TestCancelChatNoExchangeInFlight(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	err := f.service.CancelChat(context.Background(), f.userId, &dto.CancelChatRequest{ChatSessionId: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no exchange in flight")
}

func TestCancelChatRejectsForeignUser(t *testing.T) {
	provider := &stubProvider{}
	f := newChatFixture(t, provider)
	sessionId := f.seedSession(constant.ChatSessionDefaultTitle, time.Now())

	provider.onTurn = func(ctx context.Context) {
		err := f.service.CancelChat(context.Background(), uuid.New(), &dto.CancelChatRequest{ChatSessionId: sessionId})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
	}
	provider.turns = []*llm.ChatResult{{Content: "Still here."}}

	resp, err := f.service.SendChat(context.Background(), f.userId, &dto.SendChatRequest{
		ChatSessionId: sessionId,
		Chat:          "carry on",
	})
	require.NoError(t, err)
	assert.False(t, resp.Cancelled)
	assert.Equal(t, "Still here.", resp.Reply.Chat)
}

func TestDeleteSessionPromotesMostRecent(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	older := f.seedSession("Older", time.Now().Add(-2*time.Hour))
	newer := f.seedSession("Newer", time.Now().Add(-time.Hour))
	doomed := f.seedSession("Doomed", time.Now())

	resp, err := f.service.DeleteSession(context.Background(), f.userId, &dto.DeleteSessionRequest{ChatSessionId: doomed})
	require.NoError(t, err)

	assert.False(t, resp.Created)
	assert.Equal(t, newer, resp.ActiveSessionId)

	assert.Len(t, f.store.sessions, 2)
	assert.Empty(t, f.messagesOf(doomed))
	assert.Len(t, f.messagesOf(older), 1)
}

func TestDeleteLastSessionCreatesFresh(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	only := f.seedSession("Only one", time.Now())

	resp, err := f.service.DeleteSession(context.Background(), f.userId, &dto.DeleteSessionRequest{ChatSessionId: only})
	require.NoError(t, err)

	assert.True(t, resp.Created)
	assert.NotEqual(t, only, resp.ActiveSessionId)

	require.Len(t, f.store.sessions, 1)
	fresh := f.store.sessions[0]
	assert.Equal(t, resp.ActiveSessionId, fresh.Id)
	assert.Equal(t, constant.ChatSessionDefaultTitle, fresh.Title)

	msgs := f.messagesOf(fresh.Id)
	require.Len(t, msgs, 1)
	assert.Equal(t, constant.ChatGreetingMessage, msgs[0].Chat)
}

func TestDeleteSessionRejectsForeignUser(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	sessionId := f.seedSession("Mine", time.Now())

	_, err := f.service.DeleteSession(context.Background(), uuid.New(), &dto.DeleteSessionRequest{ChatSessionId: sessionId})
	require.Error(t, err)
	assert.Len(t, f.store.sessions, 1)
}

func TestGetAllSessionsOrderedByActivity(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	older := f.seedSession("Older", time.Now().Add(-2*time.Hour))
	newer := f.seedSession("Newer", time.Now().Add(-time.Hour))
	f.seedSessionForUser(uuid.New(), "Someone else's", time.Now())

	sessions, err := f.service.GetAllSessions(context.Background(), f.userId)
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, newer, sessions[0].Id)
	assert.Equal(t, older, sessions[1].Id)
}

func (f *chatFixture) seedSessionForUser(userId uuid.UUID, title string, createdAt time.Time) uuid.UUID {
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: createdAt,
	}
	f.store.sessions = append(f.store.sessions, sess)
	return sess.Id
}

func TestGetChatHistoryChronological(t *testing.T) {
	f := newChatFixture(t, &stubProvider{})
	sessionId := f.seedSession("Budget", time.Now().Add(-time.Hour))
	f.store.messages = append(f.store.messages,
		&entity.ChatMessage{Id: uuid.New(), Chat: "second", Role: constant.ChatMessageRoleAssistant, ChatSessionId: sessionId, CreatedAt: time.Now()},
		&entity.ChatMessage{Id: uuid.New(), Chat: "first", Role: constant.ChatMessageRoleUser, ChatSessionId: sessionId, CreatedAt: time.Now().Add(-time.Minute)},
	)

	history, err := f.service.GetChatHistory(context.Background(), f.userId, sessionId)
	require.NoError(t, err)

	require.Len(t, history, 3)
	assert.Equal(t, constant.ChatGreetingMessage, history[0].Chat)
	assert.Equal(t, "first", history[1].Chat)
	assert.Equal(t, "second", history[2].Chat)
}
