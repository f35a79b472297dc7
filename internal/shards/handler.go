// Package shards holds the per-category handlers and runs them for a message.
//
// Handlers are registered once at startup in a Registry, which is then sealed.
// The Dispatcher fans a message out to every selected handler at once, waits
// for all of them, and hands back one TaskResult per handler it could start.
// A failing, slow, or panicking handler only ever affects its own result.
package shards

import (
	"context"

	"lifecoach/internal/types"
)

// Handler answers messages for a single category.
type Handler interface {
	// Category returns the category this handler serves.
	Category() types.Category

	// Process answers message using the conversation so far and the category
	// hint produced by the context builder.
	Process(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error)
}
