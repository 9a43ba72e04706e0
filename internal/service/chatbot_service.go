package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sheetgrid-be/internal/constant"
	"sheetgrid-be/internal/dto"
	"sheetgrid-be/internal/entity"
	"sheetgrid-be/internal/model"
	"sheetgrid-be/internal/repository/memory"
	"sheetgrid-be/internal/repository/specification"
	"sheetgrid-be/internal/repository/unitofwork"
	"sheetgrid-be/internal/websocket"
	"sheetgrid-be/pkg/agent"
	"sheetgrid-be/pkg/events"
	"sheetgrid-be/pkg/llm"
	"sheetgrid-be/pkg/nats"
	"sheetgrid-be/pkg/store"
	"sheetgrid-be/pkg/tools"

	"github.com/google/uuid"
)

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	CancelChat(ctx context.Context, userId uuid.UUID, request *dto.CancelChatRequest) error
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) (*dto.DeleteSessionResponse, error)
}

type chatbotService struct {
	uowFactory   unitofwork.RepositoryFactory
	loop         *agent.Loop
	dispatcher   *tools.Dispatcher
	exchangeRepo *memory.ExchangeRepository
	hub          *websocket.Hub
	audit        *nats.Publisher
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	loop *agent.Loop,
	dispatcher *tools.Dispatcher,
	exchangeRepo *memory.ExchangeRepository,
	hub *websocket.Hub,
	audit *nats.Publisher,
) IChatbotService {
	return &chatbotService{
		uowFactory:   uowFactory,
		loop:         loop,
		dispatcher:   dispatcher,
		exchangeRepo: exchangeRepo,
		hub:          hub,
		audit:        audit,
	}
}

// CreateSession creates a new chat session seeded with the greeting.
func (cs *chatbotService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     constant.ChatSessionDefaultTitle,
		CreatedAt: now,
	}

	chatMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          constant.ChatGreetingMessage,
		Role:          constant.ChatMessageRoleAssistant,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &chatMessage); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions lists the user's sessions, most recently active first.
func (cs *chatbotService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves a session's messages in chronological order.
func (cs *chatbotService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			CreatedAt: msg.CreatedAt,
		})
	}

	return resp, nil
}

// SendChat persists the user message, runs the tool-calling exchange and
// persists the assistant reply. A cancel issued through CancelChat rolls
// the whole exchange back as if it never happened.
func (cs *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	existingMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	// Only the seeded greeting so far means this is the first real
	// exchange and the session still carries the placeholder title.
	updateSessionTitle := len(existingMessages) <= 1
	now := time.Now()

	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          request.Chat,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: request.ChatSessionId,
		CreatedAt:     now,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}

	history := buildHistory(existingMessages, request.Chat)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sessionIdStr := request.ChatSessionId.String()
	cs.exchangeRepo.Save(&store.ChatExchange{
		ID:     sessionIdStr,
		UserID: userId.String(),
		State:  store.StateAwaitingModel,
		Cancel: cancel,
	})
	defer cs.exchangeRepo.Delete(sessionIdStr)

	result, err := cs.loop.Run(runCtx, history)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Abandoned exchange: roll back the user message too.
			cs.notify(userId, model.Notification{Event: "chat.cancelled", Data: map[string]interface{}{
				"chat_session_id": sessionIdStr,
			}})
			return &dto.SendChatResponse{
				ChatSessionId:    chatSession.Id,
				ChatSessionTitle: chatSession.Title,
				Cancelled:        true,
			}, nil
		}
		// Model or tool-plumbing failure: keep the user message and store
		// an assistant message describing the failure so the transcript
		// stays coherent.
		result = &agent.Result{Reply: fmt.Sprintf("Sorry, I could not complete that request: %v", err)}
	}

	// Each executed tool call is kept in the transcript as a tool-role
	// stub so the history shows what the assistant actually did.
	if len(result.Steps) > 0 {
		stubs := make([]*entity.ChatMessage, 0, len(result.Steps))
		for _, step := range result.Steps {
			payload, err := json.Marshal(step)
			if err != nil {
				return nil, err
			}
			stubs = append(stubs, &entity.ChatMessage{
				Id:            uuid.New(),
				Chat:          string(payload),
				Role:          constant.ChatMessageRoleTool,
				ChatSessionId: request.ChatSessionId,
				CreatedAt:     time.Now(),
			})
		}
		if err := uow.ChatMessageRepository().CreateBulk(ctx, stubs); err != nil {
			return nil, err
		}
	}

	replyMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          result.Reply,
		Role:          constant.ChatMessageRoleAssistant,
		ChatSessionId: request.ChatSessionId,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &replyMessage); err != nil {
		return nil, err
	}

	if updateSessionTitle {
		chatSession.Title = clipTitle(request.Chat)
	}
	updatedAt := time.Now()
	chatSession.UpdatedAt = &updatedAt
	if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	steps := make([]dto.ToolStepDTO, 0, len(result.Steps))
	for _, step := range result.Steps {
		steps = append(steps, dto.ToolStepDTO{
			Name:      step.Name,
			Arguments: step.Arguments,
			Result:    step.Result,
			Remote:    cs.dispatcher.IsRemote(step.Name),
		})
		if cs.audit != nil {
			_ = cs.audit.Publish(ctx, events.NewToolExecuted(sessionIdStr, step.Name, cs.dispatcher.IsRemote(step.Name)))
		}
	}

	cs.notify(userId, model.Notification{Event: "chat.reply", Data: map[string]interface{}{
		"chat_session_id": sessionIdStr,
		"reply_id":        replyMessage.Id,
	}})

	return &dto.SendChatResponse{
		ChatSessionId:    chatSession.Id,
		ChatSessionTitle: chatSession.Title,
		Steps:            steps,
		Sent: &dto.SendChatResponseChat{
			Id:        userMessage.Id,
			Chat:      userMessage.Chat,
			Role:      userMessage.Role,
			CreatedAt: userMessage.CreatedAt,
		},
		Reply: &dto.SendChatResponseChat{
			Id:        replyMessage.Id,
			Chat:      replyMessage.Chat,
			Role:      replyMessage.Role,
			CreatedAt: replyMessage.CreatedAt,
		},
	}, nil
}

// CancelChat aborts the session's in-flight exchange, if any.
func (cs *chatbotService) CancelChat(ctx context.Context, userId uuid.UUID, request *dto.CancelChatRequest) error {
	exchange, found := cs.exchangeRepo.Get(request.ChatSessionId.String())
	if !found || exchange.Cancel == nil {
		return fmt.Errorf("no exchange in flight for this session")
	}
	if exchange.UserID != userId.String() {
		return fmt.Errorf("session not found or access denied")
	}
	exchange.Cancel()
	return nil
}

// DeleteSession removes a session and its messages, then reports which
// session the client should switch to. Deleting the last session creates
// a fresh one so the user is never left without an active session.
func (cs *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) (*dto.DeleteSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	// A running exchange on the doomed session is aborted first.
	if exchange, found := cs.exchangeRepo.Get(request.ChatSessionId.String()); found && exchange.Cancel != nil {
		exchange.Cancel()
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return nil, err
	}

	remaining, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	resp := &dto.DeleteSessionResponse{}
	if len(remaining) > 0 {
		resp.ActiveSessionId = remaining[0].Id
	} else {
		now := time.Now()
		fresh := entity.ChatSession{
			Id:        uuid.New(),
			UserId:    userId,
			Title:     constant.ChatSessionDefaultTitle,
			CreatedAt: now,
		}
		greeting := entity.ChatMessage{
			Id:            uuid.New(),
			Chat:          constant.ChatGreetingMessage,
			Role:          constant.ChatMessageRoleAssistant,
			ChatSessionId: fresh.Id,
			CreatedAt:     now,
		}
		if err := uow.ChatSessionRepository().Create(ctx, &fresh); err != nil {
			return nil, err
		}
		if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
			return nil, err
		}
		resp.ActiveSessionId = fresh.Id
		resp.Created = true
	}

	cs.exchangeRepo.Delete(request.ChatSessionId.String())

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (cs *chatbotService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}
	return sess, nil
}

func (cs *chatbotService) notify(userId uuid.UUID, n model.Notification) {
	if cs.hub != nil {
		cs.hub.Send(userId, n)
	}
}

// buildHistory maps persisted messages into the provider conversation,
// prefixed with the system prompt and suffixed with the new user turn.
func buildHistory(existing []*entity.ChatMessage, newChat string) []llm.Message {
	history := make([]llm.Message, 0, len(existing)+2)
	history = append(history, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: constant.SpreadsheetSystemPrompt,
	})
	for _, msg := range existing {
		// Tool stubs stay out of the replay: providers only accept
		// tool-role messages paired with a tool_call_id, which the
		// transcript does not keep.
		if msg.Role == constant.ChatMessageRoleTool {
			continue
		}
		history = append(history, llm.Message{
			Role:    msg.Role,
			Content: msg.Chat,
		})
	}
	history = append(history, llm.Message{
		Role:    constant.ChatMessageRoleUser,
		Content: newChat,
	})
	return history
}

func clipTitle(chat string) string {
	runes := []rune(chat)
	if len(runes) > constant.ChatSessionTitleMaxLen {
		return string(runes[:constant.ChatSessionTitleMaxLen])
	}
	return chat
}
