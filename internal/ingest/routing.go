// Package ingest turns Telegram webhook updates into stored raw messages
// and classified events.
package ingest

import (
	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// ChannelRouting maps chat ids to support channels. Unmapped chats are "other".
type ChannelRouting struct {
	byChat map[int64]domain.Channel
}

// NewChannelRouting builds the mapping. When a chat id appears in more than one
// list, bonus wins over finans, and finans over mesai.
func NewChannelRouting(bonus, finans, mesai []int64) ChannelRouting {
	byChat := make(map[int64]domain.Channel, len(bonus)+len(finans)+len(mesai))

	for _, group := range []struct {
		ids     []int64
		channel domain.Channel
	}{
		{mesai, domain.ChannelMesai},
		{finans, domain.ChannelFinans},
		{bonus, domain.ChannelBonus},
	} {
		for _, id := range group.ids {
			byChat[id] = group.channel
		}
	}

	return ChannelRouting{byChat: byChat}
}

// Channel returns the channel tag of a chat.
func (r ChannelRouting) Channel(chatID int64) domain.Channel {
	if ch, ok := r.byChat[chatID]; ok {
		return ch
	}

	return domain.ChannelOther
}

// Chats returns the chat ids routed to the channel.
func (r ChannelRouting) Chats(channel domain.Channel) []int64 {
	var ids []int64

	for id, ch := range r.byChat {
		if ch == channel {
			ids = append(ids, id)
		}
	}

	return ids
}
