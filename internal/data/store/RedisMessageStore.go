package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/data/redisStore"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/akolanti/DocMind/pkg/logger_i"
)

// historyWindow is how many turns are read back, one question and one answer per exchange.
const historyWindow = 2 * config.RetrievalHistoryTurns

var errUnknownChat = errors.New("invalid chat id")

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisMessageStore(ctx context.Context) *RedisMessageStore {
	s := redisStore.GetRedisStore(ctx, config.RedisMessageStore)
	if s == nil {
		return nil
	}
	return NewRedisMessageStore(s)
}

func NewRedisMessageStore(s *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  s,
		logger: logger_i.NewLogger("message_store"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	isFound, err := s.store.Exists(ctx, chatId)
	if err != nil {
		s.logger.WithTrace(ctx).Error("Failed to check if chatId exists", "chatId", chatId, "err", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) TrySaveChat(ctx context.Context, id string, turns ...commonModels.ConversationTurn) error {
	log := s.logger.WithTrace(ctx).With("chatId", id)
	if !s.ValidateChatId(ctx, id) {
		log.Error("Failed Validation before saving", "err", errUnknownChat)
		return errUnknownChat
	}
	for _, turn := range turns {
		if err := s.push(ctx, id, turn); err != nil {
			log.Error("error saving chat", "error", err)
			return err
		}
	}
	log.Debug("Saved chat successfully", "turns", len(turns))
	return s.store.Expire(ctx, id, config.RedisMessageStoreTTL)
}

// InitNewChat resets the list and pushes an empty marker turn so the key exists.
func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	s.logger.WithTrace(ctx).Debug("Initializing new chat", "chatId", id)
	if err := s.store.Del(ctx, id); err != nil {
		return err
	}
	if err := s.push(ctx, id, commonModels.ConversationTurn{}); err != nil {
		return err
	}
	return s.store.Expire(ctx, id, config.RedisMessageStoreTTL)
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ConversationTurn, error) {
	res, err := s.store.ListGetLast(ctx, chatId, historyWindow)
	if err != nil {
		s.logger.WithTrace(ctx).Error("Error getting history", "chatId", chatId, "error", err)
		return nil, err
	}

	turns := make([]commonModels.ConversationTurn, 0, len(res))
	for _, raw := range res {
		var turn commonModels.ConversationTurn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil || turn.Content == "" {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisMessageStore) push(ctx context.Context, id string, turn commonModels.ConversationTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	return s.store.ListPush(ctx, id, data)
}
