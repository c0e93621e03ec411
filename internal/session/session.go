package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/image-contest/internal/engine"
)

var ErrStaleVersion = errors.New("stale contest version")
var ErrClosed = errors.New("session closed")

type Msg interface{ isSessionMsg() }

// FromClient carries one engine command. When IfVersion is set the command is
// only applied if the session is still at that version.
type FromClient struct {
	Cmd       engine.Command
	IfVersion *int
	Reply     chan Result // optional
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type GetHistory struct {
	Reply chan []engine.Event
}

func (GetHistory) isSessionMsg() {}

type Snapshot struct {
	Code    string
	Version int
	State   engine.State
}

type View struct {
	Snapshot
	NumClients int
}

type Result struct {
	Snapshot Snapshot
	Err      error
}

// Session owns one contest. All reads and writes go through its inbox, so
// decisions are applied one at a time in arrival order.
type Session struct {
	code    string
	inbox   chan Msg
	state   engine.State
	history []engine.Event
	version int
	clients map[string]chan Snapshot
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewSession(parent context.Context, code string, initial engine.State, history []engine.Event, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		code:    code,
		inbox:   make(chan Msg, 64),
		state:   initial,
		history: append([]engine.Event(nil), history...),
		clients: make(map[string]chan Snapshot),
		log:     log.With(zap.String("code", code)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Inbox exposes the mailbox to the hub, the HTTP layer and the ws handler.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Send delivers msg unless the session has already stopped.
func (s *Session) Send(ctx context.Context, msg Msg) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do applies cmd and waits for the outcome.
func (s *Session) Do(ctx context.Context, cmd engine.Command, ifVersion *int) (Snapshot, error) {
	reply := make(chan Result, 1)
	if err := s.Send(ctx, FromClient{Cmd: cmd, IfVersion: ifVersion, Reply: reply}); err != nil {
		return Snapshot{}, err
	}
	select {
	case res := <-reply:
		return res.Snapshot, res.Err
	case <-s.ctx.Done():
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.ctx.Done():
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) History(ctx context.Context) ([]engine.Event, error) {
	reply := make(chan []engine.Event, 1)
	if err := s.Send(ctx, GetHistory{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case h := <-reply:
		return h, nil
	case <-s.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()
				s.log.Debug("client joined", zap.String("client", msg.ClientID), zap.Int("clients", len(s.clients)))

			case Leave:
				delete(s.clients, msg.ClientID)

			case FromClient:
				res := s.apply(msg)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case GetState:
				msg.Reply <- View{Snapshot: s.snapshot(), NumClients: len(s.clients)}

			case GetHistory:
				msg.Reply <- append([]engine.Event(nil), s.history...)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) apply(msg FromClient) Result {
	if msg.IfVersion != nil && *msg.IfVersion != s.version {
		err := fmt.Errorf("%w: have %d, got %d", ErrStaleVersion, s.version, *msg.IfVersion)
		s.log.Info("command rejected", zap.String("cmd", string(msg.Cmd.Type)), zap.Error(err))
		return Result{Snapshot: s.snapshot(), Err: err}
	}

	events, next, err := engine.Apply(s.state, msg.Cmd)
	if err != nil {
		s.log.Info("command rejected", zap.String("cmd", string(msg.Cmd.Type)), zap.Error(err))
		return Result{Snapshot: s.snapshot(), Err: err}
	}

	s.state = next
	s.history = append(s.history, events...)
	s.version++

	if next.IsComplete {
		s.log.Info("contest completed",
			zap.Int("winner", next.Winner.ID),
			zap.String("filename", next.Winner.Filename),
			zap.Int("rounds", next.Round))
	} else if engine.ContainsEvent(events, engine.EvtRoundAdvanced) {
		s.log.Debug("round advanced", zap.Int("round", next.Round), zap.Int("active", len(next.ActiveImages)))
	}

	snap := s.snapshot()
	s.broadcast(snap)
	return Result{Snapshot: snap}
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Code: s.code, Version: s.version, State: s.state}
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch) // Tell client no more snapshots
		delete(s.clients, id)
	}
	s.cancel()
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			s.log.Warn("dropping slow client", zap.String("client", id))
			close(ch)
			delete(s.clients, id)
		}
	}
}
