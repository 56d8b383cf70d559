package channel

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Manager manages the lifecycle of all channels and remembers which channel
// each chat was last seen on.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
	chats    map[string]string
}

// NewManager creates a new channel manager.
func NewManager() *Manager {
	return &Manager{
		channels: make(map[string]Channel),
		chats:    make(map[string]string),
	}
}

// Register adds a channel to the manager. The first registered channel is
// the primary one.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.channels[ch.Name()]; !exists {
		m.order = append(m.order, ch.Name())
	}
	m.channels[ch.Name()] = ch
}

// OnMessage installs handler on every registered channel. Inbound chats are
// tracked before the handler runs.
func (m *Manager) OnMessage(handler func(InboundMessage)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, name := range m.order {
		m.channels[name].OnMessage(func(msg InboundMessage) {
			m.Track(msg.ChatID, msg.ChannelName)
			handler(msg)
		})
	}
}

// StartAll starts all registered channels.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.order {
		if err := m.channels[name].Start(ctx); err != nil {
			log.Printf("[channel] failed to start %s: %v", name, err)
			return fmt.Errorf("start %s: %w", name, err)
		}
		log.Printf("[channel] started %s", name)
	}
	return nil
}

// StopAll stops all running channels.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.order {
		ch := m.channels[name]
		if ch.IsRunning() {
			if err := ch.Stop(ctx); err != nil {
				log.Printf("[channel] failed to stop %s: %v", name, err)
			} else {
				log.Printf("[channel] stopped %s", name)
			}
		}
	}
}

// Get returns a channel by name.
func (m *Manager) Get(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// Track records that chatID belongs to the named channel.
func (m *Manager) Track(chatID, channelName string) {
	if chatID == "" || channelName == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chatID] = channelName
}

// ForChat returns the channel chatID was last seen on, falling back to the
// primary channel for chats not seen since startup.
func (m *Manager) ForChat(chatID string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name, ok := m.chats[chatID]; ok {
		if ch, ok := m.channels[name]; ok {
			return ch, true
		}
	}
	if len(m.order) == 0 {
		return nil, false
	}
	return m.channels[m.order[0]], true
}

// List returns all channel names and their running status.
func (m *Manager) List() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		result[name] = ch.IsRunning()
	}
	return result
}
