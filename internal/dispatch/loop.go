// Package dispatch runs the agent's main cycle: poll the inbox, filter
// threads down to answerable conversations, schedule each reply per the
// operator's availability mode, and deliver composed replies as paced chunks
// with optional GIF reactions.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/wezaxy/dmagent/internal/availability"
	"github.com/wezaxy/dmagent/internal/compose"
	"github.com/wezaxy/dmagent/internal/config"
	"github.com/wezaxy/dmagent/internal/dedup"
	"github.com/wezaxy/dmagent/internal/instagram"
	"github.com/wezaxy/dmagent/internal/notify"
	"github.com/wezaxy/dmagent/internal/opstore"
	"github.com/wezaxy/dmagent/internal/reaction"
	"github.com/wezaxy/dmagent/internal/session"
)

// Client is the Instagram transport surface the loop drives.
// *instagram.Client satisfies it.
type Client interface {
	Login(ctx context.Context, username, password, proxy string) (instagram.Auth, error)
	FetchInbox(ctx context.Context, auth instagram.Auth, proxy string) ([]instagram.Thread, error)
	SendMessage(ctx context.Context, auth instagram.Auth, threadID, itemID string, recipients []string, text, proxy string) error
	SendTyping(ctx context.Context, auth instagram.Auth, threadID, proxy string) error
	SendReaction(ctx context.Context, auth instagram.Auth, threadID, itemID string, recipients []string, gifID, proxy string) error
	DownloadImage(ctx context.Context, imageURL string) (string, error)
}

// job is one reply unit: either a live burst from the current poll or a
// queued entry whose reply time arrived.
type job struct {
	threadID   string
	itemID     string
	recipients []string
	prompt     string
	imageURL   string
}

// Loop owns the dispatch cycle. Single goroutine; all delay handling happens
// between its suspension points.
type Loop struct {
	cfg      config.Config
	client   Client
	sessions *session.Store
	state    *opstore.Store
	composer *compose.Composer
	trigger  *reaction.Trigger
	notifier *notify.Notifier
	sched    *availability.Scheduler
	seen     *dedup.Tracker

	auth instagram.Auth
	src  session.Source

	rng   *rand.Rand
	sleep func(context.Context, time.Duration)
	now   func() time.Time
}

// sleepContext waits for d or until the context is cancelled, whichever is
// first, so shutdown never hangs on an inline reply delay.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// New wires a loop from its collaborators.
func New(cfg config.Config, client Client, sessions *session.Store, state *opstore.Store,
	composer *compose.Composer, trigger *reaction.Trigger, notifier *notify.Notifier) *Loop {
	return &Loop{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		state:    state,
		composer: composer,
		trigger:  trigger,
		notifier: notifier,
		sched:    availability.NewScheduler(),
		seen:     dedup.NewTracker(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// Run establishes a session and polls until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.ensureAuth(ctx); err != nil {
		return err
	}

	if err := l.state.Update(func(st *opstore.State) error {
		if st.StartedAt == nil {
			t := l.now()
			st.StartedAt = &t
		}
		return nil
	}); err != nil {
		log.Printf("[Dispatch] recording start time: %v", err)
	}

	interval := time.Duration(l.cfg.PollInterval) * time.Second
	log.Printf("[Dispatch] polling inbox every %s as account %s (session source: %s)",
		interval, l.auth.AccountID, l.src)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := l.Cycle(ctx)
		switch {
		case err == nil:
		case errors.Is(err, instagram.ErrRateLimited):
			log.Printf("[Dispatch] rate limited, backing off %ds", instagram.RateLimitBackoff)
			l.sleep(ctx, instagram.RateLimitBackoff*time.Second)
		case errors.Is(err, instagram.ErrAuth):
			l.recoverAuth(ctx, err)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			log.Printf("[Dispatch] cycle failed: %v", err)
		}

		l.sleep(ctx, interval)
	}
}

// Cycle performs one poll: drain due queue entries, fetch the inbox, and
// answer every qualifying thread.
func (l *Loop) Cycle(ctx context.Context) error {
	l.drainQueue(ctx)

	threads, err := l.client.FetchInbox(ctx, l.auth, l.pickProxy())
	if err != nil {
		return err
	}

	st, err := l.state.Load()
	if err != nil {
		return fmt.Errorf("dispatch: loading state: %w", err)
	}
	mode, err := availability.Parse(st.CurrentMode)
	if err != nil {
		log.Printf("[Dispatch] %v, treating as available", err)
		mode = availability.Available
	}

	for _, thread := range threads {
		j, ok := l.collect(thread, st.SkippedThreads)
		if !ok {
			continue
		}

		decision := l.sched.Decide(mode)
		switch decision.Action {
		case availability.ActionDrop:
			log.Printf("[Dispatch] dnd, dropping message in thread %s", j.threadID)
		case availability.ActionDefer:
			if err := l.enqueue(j, decision.ReplyAt); err != nil {
				log.Printf("[Dispatch] queueing thread %s: %v", j.threadID, err)
			}
		case availability.ActionReply:
			log.Printf("[Dispatch] replying to thread %s in %s", j.threadID, decision.Wait)
			l.sleep(ctx, decision.Wait)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.respond(ctx, j, st)
		}
	}

	l.seen.MaybeCompact()
	return nil
}

// collect reduces a thread to one answerable job, or reports it skippable.
// Consecutive unread messages from the other party are merged into a single
// burst so one reply covers them all. Every burst message is marked processed
// before any reply is attempted: a failed send must not double-reply later.
func (l *Loop) collect(t instagram.Thread, skipped []string) (job, bool) {
	if t.IsGroup && !l.cfg.GroupMessages {
		return job{}, false
	}
	for _, id := range skipped {
		if id == t.ID {
			return job{}, false
		}
	}
	if len(t.Messages) == 0 {
		return job{}, false
	}
	// Newest message is ours: the conversation is already answered.
	if t.Messages[0].SenderID == l.auth.AccountID {
		return job{}, false
	}

	sender := t.Messages[0].SenderID
	var burst []instagram.Message
	for _, m := range t.Messages {
		if m.SenderID != sender {
			break
		}
		burst = append(burst, m)
	}

	fresh := false
	for _, m := range burst {
		if l.seen.IsNew(m.ID) {
			fresh = true
		}
		l.seen.Mark(m.ID)
	}
	if !fresh {
		return job{}, false
	}

	// Oldest first, so the prompt reads chronologically.
	var parts []string
	var imageURL string
	for i := len(burst) - 1; i >= 0; i-- {
		if burst[i].Text != "" {
			parts = append(parts, burst[i].Text)
		}
		if burst[i].ImageURL != "" {
			imageURL = burst[i].ImageURL
		}
	}
	if len(parts) == 0 && imageURL == "" {
		return job{}, false
	}

	return job{
		threadID:   t.ID,
		itemID:     burst[0].ID,
		recipients: []string{sender},
		prompt:     strings.Join(parts, "\n"),
		imageURL:   imageURL,
	}, true
}

func (l *Loop) enqueue(j job, replyAt *time.Time) error {
	log.Printf("[Dispatch] deferring thread %s (reply at %v)", j.threadID, replyAt)
	return l.state.Enqueue(opstore.QueuedMessage{
		ThreadID:   j.threadID,
		Sender:     j.recipients[0],
		Message:    j.prompt,
		ReceivedAt: l.now(),
		ReplyAt:    replyAt,
	})
}

// drainQueue answers every queued entry whose reply time has arrived.
func (l *Loop) drainQueue(ctx context.Context) {
	ready, err := l.state.DrainReady(l.now())
	if err != nil {
		log.Printf("[Dispatch] draining queue: %v", err)
		return
	}
	if len(ready) == 0 {
		return
	}

	st, err := l.state.Load()
	if err != nil {
		log.Printf("[Dispatch] loading state for queue drain: %v", err)
		st = opstore.DefaultState()
	}
	log.Printf("[Dispatch] answering %d queued message(s)", len(ready))
	for _, m := range ready {
		l.respond(ctx, job{
			threadID:   m.ThreadID,
			recipients: []string{m.Sender},
			prompt:     m.Message,
		}, st)
	}
}

// respond composes and delivers one reply: typing indicator, paced chunks
// (typing re-raised between chunks, not after the last), then an optional
// GIF reaction.
func (l *Loop) respond(ctx context.Context, j job, st opstore.State) {
	proxy := l.pickProxy()

	if err := l.client.SendTyping(ctx, l.auth, j.threadID, proxy); err != nil {
		log.Printf("[Dispatch] typing indicator for %s: %v", j.threadID, err)
	}

	req := compose.ReplyRequest{
		Prompt:    j.prompt,
		Language:  l.cfg.Language,
		Knowledge: l.cfg.Knowledge(),
	}
	if j.imageURL != "" {
		b64, err := l.client.DownloadImage(ctx, j.imageURL)
		if err != nil {
			log.Printf("[Dispatch] image download for %s: %v", j.threadID, err)
		} else {
			req.ImageB64 = b64
		}
	}

	resp, err := l.composer.Compose(ctx, req)
	if err != nil {
		log.Printf("[Dispatch] composing reply for %s: %v", j.threadID, err)
		return
	}

	sent := 0
	for i, chunk := range resp.Chunks {
		l.sleep(ctx, resp.Delays[i])
		if err := l.client.SendMessage(ctx, l.auth, j.threadID, j.itemID, j.recipients, chunk, proxy); err != nil {
			log.Printf("[Dispatch] sending chunk %d/%d to %s: %v", i+1, len(resp.Chunks), j.threadID, err)
			break
		}
		sent++
		if i < len(resp.Chunks)-1 {
			if err := l.client.SendTyping(ctx, l.auth, j.threadID, proxy); err != nil {
				log.Printf("[Dispatch] typing indicator for %s: %v", j.threadID, err)
			}
		}
	}

	if sent > 0 {
		if err := l.state.IncrMessagesSent(sent); err != nil {
			log.Printf("[Dispatch] bumping sent counter: %v", err)
		}
	}
	if sent == len(resp.Chunks) && st.GifEnabled {
		l.react(ctx, j, resp.Full, st.GifChance, proxy)
	}
}

func (l *Loop) react(ctx context.Context, j job, full string, chance float64, proxy string) {
	gifID, ok := l.trigger.Pick(full, chance)
	if !ok {
		return
	}
	l.sleep(ctx, l.trigger.Delay())
	if err := l.client.SendReaction(ctx, l.auth, j.threadID, j.itemID, j.recipients, gifID, proxy); err != nil {
		log.Printf("[Dispatch] sending reaction to %s: %v", j.threadID, err)
	}
}

// ensureAuth resolves a session from the store or performs a fresh login.
func (l *Loop) ensureAuth(ctx context.Context) error {
	if sess, src, ok := l.sessions.Get(ctx); ok {
		l.auth = instagram.Auth{Token: sess.AuthToken, AccountID: sess.AccountID}
		l.src = src
		return nil
	}
	return l.login(ctx)
}

func (l *Loop) login(ctx context.Context) error {
	if l.cfg.Instagram.Password == "" {
		return fmt.Errorf("dispatch: no session and no password configured: %w", instagram.ErrAuth)
	}

	log.Printf("[Dispatch] logging in as %s", l.cfg.Instagram.Username)
	auth, err := l.client.Login(ctx, l.cfg.Instagram.Username, l.cfg.Instagram.Password, l.pickProxy())
	if err != nil {
		return fmt.Errorf("dispatch: login: %w", err)
	}

	l.auth = auth
	l.src = session.SourceFile
	if err := l.sessions.Set(ctx, session.Session{AuthToken: auth.Token, AccountID: auth.AccountID}); err != nil {
		log.Printf("[Dispatch] persisting session: %v", err)
	}
	l.notifier.NotifyFreshLogin(auth.Token)
	return nil
}

// recoverAuth handles an expired session mid-run. With a password configured
// the stale tiers are cleared and a fresh login is attempted; without one the
// operator is alerted (rate-limited) and the stale token is kept, since a
// replacement can only arrive from outside.
func (l *Loop) recoverAuth(ctx context.Context, cause error) {
	log.Printf("[Dispatch] session rejected: %v", cause)

	if l.cfg.Instagram.Password == "" || l.src == session.SourceEnv {
		l.notifier.NotifySessionExpired(cause.Error())
		return
	}

	l.sessions.Invalidate(ctx)
	if err := l.login(ctx); err != nil {
		log.Printf("[Dispatch] re-login failed: %v", err)
	}
}

// pickProxy returns a random proxy from the configured pool, or "" for a
// direct connection. Per-attempt rotation, matching how the pool is shared
// across accounts.
func (l *Loop) pickProxy() string {
	if !l.cfg.Proxy.Enabled || len(l.cfg.Proxy.List) == 0 {
		return ""
	}
	return l.cfg.Proxy.List[l.rng.Intn(len(l.cfg.Proxy.List))]
}
