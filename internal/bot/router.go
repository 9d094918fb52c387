// Package bot implements the conversational state machine. Inbound text is
// matched against an ordered route table; the first match wins, and the
// order is load-bearing: reset and greeting keywords must out-rank the
// add-mode bare-text interpretation, so typing "reset" is never parsed as
// an expense line.
package bot

import (
	"context"
	"strings"
	"time"

	"budgetwizard/internal/core"
	"budgetwizard/internal/store"
)

// CheckoutStarter creates a hosted payment session for unlocking a period.
type CheckoutStarter interface {
	CreateSession(ctx context.Context, user core.UserID, period string) (string, error)
}

// RecordPublisher forwards paywall activity records to the archive
// pipeline.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec core.ActivityRecord) error
}

// Reply is what goes back to the transport: plain text plus an optional
// file attachment.
type Reply struct {
	Text string
	File *File
}

// File is a binary attachment with a display name and caption.
type File struct {
	Name    string
	Caption string
	Content []byte
}

type route struct {
	match  func(norm string) bool
	handle func(ctx context.Context, user core.UserID, norm, raw string) Reply
}

// Router drives the per-user conversation.
type Router struct {
	store    *store.Store
	checkout CheckoutStarter
	events   RecordPublisher
	now      func() time.Time
	routes   []route
}

// New wires the router. checkout may be nil when payments are not
// configured and events may be nil when no broker is available; both
// degrade gracefully.
func New(st *store.Store, checkout CheckoutStarter, events RecordPublisher) *Router {
	r := &Router{
		store:    st,
		checkout: checkout,
		events:   events,
		now:      time.Now,
	}
	// Precedence order per the transition table; do not reorder.
	r.routes = []route{
		{matchAny("reset", "clear", "new month", "start new month"), r.handleReset},
		{matchAny("hi", "hello", "hey", "start", "go"), r.handleGreeting},
		{matchAny("done", "stop", "finish"), r.handleExit},
		{matchAny("view", "summary"), r.handleView},
		{matchAny("generate", "budget"), r.handleBudget},
		{matchAny("export", "excel"), r.handleExport},
		{matchAny("unlock", "buy", "pay"), r.handleUnlock},
		{matchPrefix("add "), r.handleAddPrefix},
	}
	return r
}

func matchAny(words ...string) func(string) bool {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return func(norm string) bool {
		_, ok := set[norm]
		return ok
	}
}

func matchPrefix(prefix string) func(string) bool {
	return func(norm string) bool {
		return strings.HasPrefix(norm, prefix)
	}
}

// HandleMessage routes one inbound text event. Keyword matching runs on
// the trimmed, case-folded input; expense parsing always sees the raw
// text, so category casing survives.
func (r *Router) HandleMessage(ctx context.Context, user core.UserID, raw string) Reply {
	trimmed := strings.TrimSpace(raw)
	norm := strings.ToLower(trimmed)

	if strings.HasPrefix(norm, "/") {
		return r.handleCommand(ctx, user, trimmed)
	}

	for _, rt := range r.routes {
		if rt.match(norm) {
			return rt.handle(ctx, user, norm, trimmed)
		}
	}

	if r.store.Mode(user) == core.ModeAdd {
		return r.handleBareBlock(ctx, user, raw)
	}
	return Reply{Text: helpHint}
}
