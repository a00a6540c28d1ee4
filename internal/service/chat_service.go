package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hajime-dev/devicekb/internal/model"
	appErr "github.com/hajime-dev/devicekb/internal/pkg/errors"
	"github.com/hajime-dev/devicekb/internal/rag"
	"github.com/hajime-dev/devicekb/internal/repo"
)

const (
	chatRoleUser      = "user"
	chatRoleAssistant = "assistant"

	defaultHistoryLimit = 20
	maxPriorTurns       = 3
)

type ChatService struct {
	devices     *repo.DeviceRepo
	chats       *repo.ChatRepo
	retriever   *rag.Retriever
	synthesizer *rag.Synthesizer
	finalCount  int
}

func NewChatService(devices *repo.DeviceRepo, chats *repo.ChatRepo, retriever *rag.Retriever, synthesizer *rag.Synthesizer, finalCount int) *ChatService {
	return &ChatService{devices: devices, chats: chats, retriever: retriever, synthesizer: synthesizer, finalCount: finalCount}
}

// Ask answers one question against the device's indexed documents and
// appends both turns to the stored history. Evidence never leaves the
// device's namespace. When the caller sends no history the stored
// transcript stands in for it, so follow-up questions resolve either way.
func (s *ChatService) Ask(ctx context.Context, deviceID, message string, history []model.ChatMessage) (*model.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, appErr.ErrInvalid
	}
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if len(history) == 0 {
		stored, err := s.chats.ListRecent(ctx, device.ID, defaultHistoryLimit)
		if err != nil {
			logutil.GetLogger(ctx).Warn("load chat history failed", zap.String("device_id", device.ID), zap.Error(err))
		} else {
			history = stored
		}
	}

	evidence, err := s.retriever.RetrieveForConversation(ctx, message, priorUserTurns(history, maxPriorTurns), device.Namespace(), s.finalCount)
	if err != nil {
		return nil, err
	}
	answer, err := s.synthesizer.Synthesize(ctx, message, evidence)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	if err := s.chats.Append(ctx, device.ID, &model.ChatMessage{Role: chatRoleUser, Content: message, Ctime: now}); err != nil {
		logutil.GetLogger(ctx).Error("append user message failed", zap.String("device_id", device.ID), zap.Error(err))
	}
	if err := s.chats.Append(ctx, device.ID, &model.ChatMessage{Role: chatRoleAssistant, Content: answer.Text, Ctime: now + 1}); err != nil {
		logutil.GetLogger(ctx).Error("append assistant message failed", zap.String("device_id", device.ID), zap.Error(err))
	}
	return answer, nil
}

// priorUserTurns picks the last n user-role questions, oldest first.
func priorUserTurns(history []model.ChatMessage, n int) []string {
	var turns []string
	for _, msg := range history {
		if msg.Role != chatRoleUser {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		turns = append(turns, content)
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

// Search runs retrieval only, returning ranked evidence without an answer.
func (s *ChatService) Search(ctx context.Context, deviceID, query string, limit int) ([]model.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, appErr.ErrInvalid
	}
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.finalCount
	}
	return s.retriever.Retrieve(ctx, query, device.Namespace(), limit)
}

func (s *ChatService) History(ctx context.Context, deviceID string, limit int) ([]model.ChatMessage, error) {
	if _, err := s.devices.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.chats.ListRecent(ctx, deviceID, limit)
}

func (s *ChatService) Clear(ctx context.Context, deviceID string) error {
	if _, err := s.devices.Get(ctx, deviceID); err != nil {
		return err
	}
	return s.chats.DeleteByDevice(ctx, deviceID)
}
