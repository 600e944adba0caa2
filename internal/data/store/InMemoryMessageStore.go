package store

import (
	"context"
	"sync"

	"github.com/akolanti/DocMind/internal/domain/commonModels"
)

type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]commonModels.ConversationTurn
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]commonModels.ConversationTurn),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) TrySaveChat(ctx context.Context, id string, turns ...commonModels.ConversationTurn) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	if _, ok := store.chatMap[id]; !ok {
		return errUnknownChat
	}
	store.chatMap[id] = append(store.chatMap[id], turns...)
	return nil
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]commonModels.ConversationTurn, 0)
	return nil
}

func (store *InMemoryMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ConversationTurn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	turns := store.chatMap[chatId]
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	return append([]commonModels.ConversationTurn(nil), turns...), nil
}
