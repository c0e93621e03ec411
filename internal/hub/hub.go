package hub

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/image-contest/internal/engine"
	"github.com/DoyleJ11/image-contest/internal/session"
)

var ErrStopped = errors.New("hub stopped")

type HubMsg interface{ isHubMsg() }

// CreateSession registers a new contest under Code. If the code is taken the
// existing session is returned and State is ignored.
type CreateSession struct {
	Code    string
	State   engine.State
	History []engine.Event
	Reply   chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

// RemoveSession forgets the contest and stops its session.
type RemoveSession struct {
	Code  string
	Reply chan bool // optional; true if a session was removed
}

type ListSessions struct {
	Reply chan []string
}

type ShutdownHub struct{}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ListSessions) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Get looks up a session; nil when the code is unknown or the hub has stopped.
func (h *Hub) Get(code string) *session.Session {
	reply := make(chan *session.Session, 1)
	if err := h.send(context.Background(), GetSession{Code: code, Reply: reply}); err != nil {
		return nil
	}
	select {
	case s := <-reply:
		return s
	case <-h.ctx.Done():
		return nil
	}
}

// Create registers a contest and returns its session.
func (h *Hub) Create(ctx context.Context, code string, state engine.State, history []engine.Event) (*session.Session, error) {
	reply := make(chan *session.Session, 1)
	if err := h.send(ctx, CreateSession{Code: code, State: state, History: history, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove stops the contest under code; false if there was none.
func (h *Hub) Remove(ctx context.Context, code string) (bool, error) {
	reply := make(chan bool, 1)
	if err := h.send(ctx, RemoveSession{Code: code, Reply: reply}); err != nil {
		return false, err
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-h.ctx.Done():
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (h *Hub) List(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	if err := h.send(ctx, ListSessions{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case codes := <-reply:
		return codes, nil
	case <-h.ctx.Done():
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := session.NewSession(h.ctx, msg.Code, msg.State, msg.History, h.log)
				h.sessions[msg.Code] = s
				h.log.Info("contest created", zap.String("code", msg.Code), zap.Int("images", len(msg.State.AllImages)))
				msg.Reply <- s

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case RemoveSession:
				s, ok := h.sessions[msg.Code]
				if ok {
					delete(h.sessions, msg.Code)
					_ = s.Send(h.ctx, session.Shutdown{})
					h.log.Info("contest removed", zap.String("code", msg.Code))
				}
				if msg.Reply != nil {
					msg.Reply <- ok
				}

			case ListSessions:
				codes := make([]string, 0, len(h.sessions))
				for code := range h.sessions {
					codes = append(codes, code)
				}
				slices.Sort(codes)
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		_ = s.Send(h.ctx, session.Shutdown{})
	}
	clear(h.sessions)
	h.cancel()
}
