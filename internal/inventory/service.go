// service.go

package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jacl-coder/SeaStorm-Server/internal/models"
	"github.com/jacl-coder/SeaStorm-Server/internal/store"
)

var (
	ErrUnknownItemType = errors.New("未知的物品类型")
	ErrIndexOutOfRange = errors.New("物品索引越界")
	ErrEmptyItemName   = errors.New("物品名称不能为空")
)

// Store 背包持久化接口
type Store interface {
	GetInventory(ctx context.Context, playerID string) (models.Inventory, error)
	CreateInventory(ctx context.Context, inv models.Inventory) error
	UpdateInventory(ctx context.Context, inv models.Inventory) error
}

// Service 背包服务，同一玩家的读改写串行执行
type Service struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService 创建背包服务
func NewService(s Store) *Service {
	return &Service{
		store: s,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) lock(playerID string) func() {
	s.mu.Lock()
	l, ok := s.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[playerID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get 读取背包，不存在时创建空背包
func (s *Service) Get(ctx context.Context, playerID string) (models.Inventory, error) {
	unlock := s.lock(playerID)
	defer unlock()
	return s.load(ctx, playerID)
}

func (s *Service) load(ctx context.Context, playerID string) (models.Inventory, error) {
	inv, err := s.store.GetInventory(ctx, playerID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Inventory{}, fmt.Errorf("读取背包失败: %w", err)
	}

	inv = models.NewInventory(playerID, s.now())
	if err := s.store.CreateInventory(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return s.store.GetInventory(ctx, playerID)
		}
		return models.Inventory{}, fmt.Errorf("创建背包失败: %w", err)
	}
	return inv, nil
}

// Add 向集合末尾追加物品并保存整个背包
func (s *Service) Add(ctx context.Context, playerID string, itemType models.ItemType, name string, data map[string]any) (models.Inventory, error) {
	if !itemType.Valid() {
		return models.Inventory{}, fmt.Errorf("%w: %s", ErrUnknownItemType, itemType)
	}
	if name == "" {
		return models.Inventory{}, ErrEmptyItemName
	}
	if data == nil {
		data = map[string]any{}
	}

	unlock := s.lock(playerID)
	defer unlock()

	inv, err := s.load(ctx, playerID)
	if err != nil {
		return models.Inventory{}, err
	}

	now := s.now()
	next := inv.Clone()
	next.SetItems(itemType, append(next.Items(itemType), models.Item{
		Name:       name,
		AcquiredAt: now,
		Data:       data,
	}))
	next.UpdatedAt = now

	if err := s.store.UpdateInventory(ctx, next); err != nil {
		return models.Inventory{}, fmt.Errorf("保存背包失败: %w", err)
	}
	return next, nil
}

// Remove 删除集合中index位置的物品，返回被删除的物品和新背包
func (s *Service) Remove(ctx context.Context, playerID string, itemType models.ItemType, index int) (models.Item, models.Inventory, error) {
	if !itemType.Valid() {
		return models.Item{}, models.Inventory{}, fmt.Errorf("%w: %s", ErrUnknownItemType, itemType)
	}

	unlock := s.lock(playerID)
	defer unlock()

	inv, err := s.load(ctx, playerID)
	if err != nil {
		return models.Item{}, models.Inventory{}, err
	}

	items := inv.Items(itemType)
	if index < 0 || index >= len(items) {
		return models.Item{}, models.Inventory{}, fmt.Errorf("%w: %d (共%d个)", ErrIndexOutOfRange, index, len(items))
	}

	removed := items[index]
	remaining := make([]models.Item, 0, len(items)-1)
	remaining = append(remaining, items[:index]...)
	remaining = append(remaining, items[index+1:]...)

	next := inv.Clone()
	next.SetItems(itemType, remaining)
	next.UpdatedAt = s.now()

	if err := s.store.UpdateInventory(ctx, next); err != nil {
		return models.Item{}, models.Inventory{}, fmt.Errorf("保存背包失败: %w", err)
	}
	return removed, next, nil
}

// Clear 清空三个集合
func (s *Service) Clear(ctx context.Context, playerID string) (models.Inventory, error) {
	unlock := s.lock(playerID)
	defer unlock()

	inv, err := s.load(ctx, playerID)
	if err != nil {
		return models.Inventory{}, err
	}

	next := inv.Clone()
	for _, t := range models.ItemTypes {
		next.SetItems(t, []models.Item{})
	}
	next.UpdatedAt = s.now()

	if err := s.store.UpdateInventory(ctx, next); err != nil {
		return models.Inventory{}, fmt.Errorf("保存背包失败: %w", err)
	}
	return next, nil
}
