package kpi

import (
	"context"
	"fmt"
	"time"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/ingest"
)

// RawReader looks up stored webhook messages.
type RawReader interface {
	GetRawMessage(ctx context.Context, chatID, msgID int64) (*domain.RawMessage, error)
}

// Root is the first message of a reply chain.
type Root struct {
	ChatID    int64
	MsgID     int64
	Timestamp time.Time
}

// Key identifies the thread the root starts.
func (r Root) Key() string {
	return ingest.CorrelationID(r.ChatID, r.MsgID)
}

type msgRef struct {
	chatID int64
	msgID  int64
}

type walkResult struct {
	root Root
	ok   bool
}

// Walker follows reply_to_message links through stored raw messages up to the
// chain root. A Walker caches every node it visits and is meant to live for a
// single aggregation call. It is not safe for concurrent use.
type Walker struct {
	raw   RawReader
	cache map[msgRef]walkResult
}

func NewWalker(raw RawReader) *Walker {
	return &Walker{raw: raw, cache: make(map[msgRef]walkResult)}
}

// Root walks up from (chatID, msgID). It reports false when a message in the
// chain is not stored or the chain loops back on itself.
func (w *Walker) Root(ctx context.Context, chatID, msgID int64) (Root, bool, error) {
	path := make([]msgRef, 0, 4)
	visited := make(map[msgRef]struct{})
	cur := msgRef{chatID: chatID, msgID: msgID}

	for {
		if res, ok := w.cache[cur]; ok {
			w.remember(path, res)

			return res.root, res.ok, nil
		}

		if _, seen := visited[cur]; seen {
			w.remember(path, walkResult{})

			return Root{}, false, nil
		}

		visited[cur] = struct{}{}
		path = append(path, cur)

		raw, err := w.raw.GetRawMessage(ctx, cur.chatID, cur.msgID)
		if err != nil {
			return Root{}, false, fmt.Errorf("walk reply chain: %w", err)
		}

		if raw == nil {
			w.remember(path, walkResult{})

			return Root{}, false, nil
		}

		parent, isReply := ingest.ReplyParentID(raw.RawPayload)
		if !isReply {
			res := walkResult{root: Root{ChatID: cur.chatID, MsgID: cur.msgID, Timestamp: raw.Timestamp}, ok: true}
			w.remember(path, res)

			return res.root, true, nil
		}

		cur = msgRef{chatID: cur.chatID, msgID: parent}
	}
}

func (w *Walker) remember(path []msgRef, res walkResult) {
	for _, ref := range path {
		w.cache[ref] = res
	}
}
