package compose

import (
	"context"
	"log"
	"time"
)

// Fallback replies when the responder keeps coming back empty.
const (
	fallbackText  = "hey whats up"
	fallbackImage = "nice pic 👀"
)

const (
	maxRetries = 2
	retryPause = 500 * time.Millisecond
)

// ReplyRequest is one composite prompt for the responder.
type ReplyRequest struct {
	Prompt    string
	Language  string
	Knowledge string
	// ImageB64 carries a base64-encoded image for multimodal replies.
	ImageB64 string
}

// Responder is the external conversational-AI collaborator.
type Responder interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// Response is a composed, ready-to-send reply.
type Response struct {
	// Full is the unsplit reply text, used by the reaction trigger.
	Full string
	// Chunks are sent as separate messages, in order, each after its delay.
	Chunks []string
	Delays []time.Duration
}

// Composer obtains a reply and paces it into chunks.
type Composer struct {
	responder Responder
	splitter  *Splitter
	pacer     *Pacer
	sleep     func(time.Duration)
}

// NewComposer creates a composer around the given responder.
func NewComposer(r Responder) *Composer {
	return &Composer{
		responder: r,
		splitter:  NewSplitter(),
		pacer:     NewPacer(),
		sleep:     time.Sleep,
	}
}

// Compose calls the responder (retrying twice on empty or failed replies,
// then substituting a generic fallback), splits the result, and computes
// per-chunk delays.
func (c *Composer) Compose(ctx context.Context, req ReplyRequest) (Response, error) {
	full := c.generate(ctx, req)

	chunks := c.splitter.Split(full)
	delays := make([]time.Duration, len(chunks))
	for i, chunk := range chunks {
		delays[i] = c.pacer.ChunkDelay(chunk, i == 0)
	}
	return Response{Full: full, Chunks: chunks, Delays: delays}, nil
}

func (c *Composer) generate(ctx context.Context, req ReplyRequest) string {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(retryPause)
		}
		reply, err := c.responder.GenerateReply(ctx, req)
		if err != nil {
			log.Printf("[Compose] responder attempt %d/%d failed: %v", attempt+1, maxRetries+1, err)
			continue
		}
		if reply != "" {
			return reply
		}
		log.Printf("[Compose] responder attempt %d/%d returned empty reply", attempt+1, maxRetries+1)
	}

	if req.ImageB64 != "" {
		return fallbackImage
	}
	return fallbackText
}
