package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/commands"
	"voxelguard.ai/internal/feedback"
	"voxelguard.ai/internal/guard"
	"voxelguard.ai/internal/host"
	"voxelguard.ai/internal/protocol"
)

// Bridge is the part of the host loop the transport needs.
type Bridge interface {
	Decide(ctx context.Context, in guard.Intent, deliver func(feedback.Notice) bool) (guard.Decision, error)
	Command(ctx context.Context, c commands.Caller, args []string) (commands.Result, error)
	Complete(ctx context.Context, c commands.Caller, args []string) ([]string, error)
	Status(ctx context.Context) (host.Status, error)
}

// Observer is told about connection lifecycle and rejected messages.
type Observer interface {
	Connected()
	Disconnected()
	Rejected(code string)
}

type Options struct {
	Worlds   guard.WorldResolver
	Catalogs *catalogs.Catalogs
	Observer Observer

	// QueueSize bounds the per-connection outbound queue.
	QueueSize int
	// PingEvery keeps idle bridges alive.
	PingEvery time.Duration
}

type Server struct {
	bridge Bridge
	log    *log.Logger
	opts   Options
	conv   converter

	upgrader websocket.Upgrader
}

func NewServer(b Bridge, logger *log.Logger, opts Options) *Server {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.PingEvery <= 0 {
		opts.PingEvery = 30 * time.Second
	}
	s := &Server{
		bridge: b,
		log:    logger,
		opts:   opts,
		conv:   converter{worlds: opts.Worlds},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // bridge is server-to-server
		},
	}
	if opts.Catalogs != nil {
		s.conv.blocks = opts.Catalogs.Blocks
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		session, ok := s.handshake(ctx, conn)
		if !ok {
			return
		}
		if s.opts.Observer != nil {
			s.opts.Observer.Connected()
			defer s.opts.Observer.Disconnected()
		}
		s.log.Printf("bridge %s connected from %s", session, r.RemoteAddr)
		defer s.log.Printf("bridge %s disconnected", session)

		out := make(chan []byte, s.opts.QueueSize)
		pongWait := 2 * s.opts.PingEvery
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		// Writer goroutine.
		go func() {
			ping := time.NewTicker(s.opts.PingEvery)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						cancel()
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		c := &connection{s: s, ctx: ctx, out: out}

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			c.handle(msg)
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	hello, err := decodeHello(msg)
	if err != nil {
		s.reject(protocol.ErrProtoBadRequest)
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		s.reject(protocol.ErrProtoUnsupported)
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoUnsupported, Message: "protocol_version " + protocol.Version + " required"})
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", false
	}
	for _, w := range hello.Worlds {
		if s.opts.Worlds != nil && !s.opts.Worlds.HasWorld(w) {
			s.log.Printf("bridge %q reports world %q which is not configured; its events will be rejected", hello.ServerName, w)
		}
	}

	st, err := s.bridge.Status(ctx)
	if err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, "service stopping")
		return "", false
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       uuid.NewString(),
		Unbreakable:     st.Blocks,
		Worlds:          hello.Worlds,
	}
	if cat := s.opts.Catalogs; cat != nil {
		welcome.Catalogs = protocol.CatalogDigests{
			BlockPalette:   protocol.DigestRef{Digest: cat.Blocks.PaletteDigest, Count: len(cat.Blocks.Palette)},
			FeedbackDigest: cat.Feedback.Digest,
		}
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	return welcome.SessionID, true
}

// decodeHello validates and decodes the first frame of a bridge session.
func decodeHello(msg []byte) (protocol.HelloMsg, error) {
	var hello protocol.HelloMsg
	base, err := protocol.Validate(msg)
	if err != nil {
		return hello, err
	}
	if base.Type != protocol.TypeHello {
		return hello, fmt.Errorf("got %s", base.Type)
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return hello, err
	}
	return hello, nil
}

func (s *Server) reject(code string) {
	if s.opts.Observer != nil {
		s.opts.Observer.Rejected(code)
	}
}

// connection serves one bridge. Requests are handled in arrival order on the
// reader goroutine; replies and feedback go through out.
type connection struct {
	s   *Server
	ctx context.Context
	out chan []byte
}

func (c *connection) handle(msg []byte) {
	base, err := protocol.Validate(msg)
	if err != nil {
		c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "%v", err))
		return
	}
	switch base.Type {
	case protocol.TypePlace, protocol.TypeBreak:
		var m protocol.BlockEventMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "%v", err))
			return
		}
		a, err := c.s.conv.actor(m.Actor)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		at, err := c.s.conv.block(m.Block, false)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		if m.Type == protocol.TypePlace {
			c.decide(m.ID, guard.PlaceIntent{Actor: a, At: at})
		} else {
			c.decide(m.ID, guard.BreakIntent{Actor: a, At: at})
		}
	case protocol.TypeExplode, protocol.TypePiston:
		var m protocol.MultiBlockMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "%v", err))
			return
		}
		blocks, err := c.s.conv.blocksOf(m.Blocks)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		if m.Type == protocol.TypeExplode {
			c.decide(m.ID, guard.ExplodeIntent{Blocks: blocks})
		} else {
			c.decide(m.ID, guard.PistonIntent{Blocks: blocks})
		}
	case protocol.TypeRemove:
		var m protocol.RemoveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "%v", err))
			return
		}
		loc, err := c.s.conv.location(m.World, m.Pos)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		c.decide(m.ID, guard.RemoveIntent{Loc: loc})
	case protocol.TypeCommand:
		var m protocol.CommandMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "%v", err))
			return
		}
		caller, err := c.caller(m.Actor, m.World, m.Target)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		res, err := c.s.bridge.Command(c.ctx, caller, m.Args)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		c.send(protocol.ReplyMsg{Type: protocol.TypeReply, ID: m.ID, Lines: res.Lines})
	case protocol.TypeComplete:
		var m protocol.CompleteMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "%v", err))
			return
		}
		caller, err := c.caller(m.Actor, "", nil)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		comp, err := c.s.bridge.Complete(c.ctx, caller, m.Args)
		if err != nil {
			c.fail(m.ID, err)
			return
		}
		c.send(protocol.ReplyMsg{Type: protocol.TypeReply, ID: m.ID, Completions: comp})
	default:
		c.fail(base.ID, badRequest(protocol.ErrProtoBadRequest, "unexpected %s", base.Type))
	}
}

func (c *connection) caller(ref protocol.ActorRef, world string, target *protocol.BlockRef) (commands.Caller, error) {
	a, err := c.s.conv.actor(ref)
	if err != nil {
		return commands.Caller{}, err
	}
	caller := commands.Caller{Actor: a, World: world}
	if target != nil {
		at, err := c.s.conv.block(*target, true)
		if err != nil {
			return commands.Caller{}, err
		}
		caller.Target = &at
	}
	return caller, nil
}

func (c *connection) decide(id string, in guard.Intent) {
	d, err := c.s.bridge.Decide(c.ctx, in, c.deliver)
	if err != nil {
		c.fail(id, err)
		return
	}
	c.send(verdict(id, d))
}

// deliver runs on the host loop goroutine and must not block.
func (c *connection) deliver(n feedback.Notice) bool {
	b, err := json.Marshal(feedbackMsg(n))
	if err != nil {
		return false
	}
	select {
	case c.out <- b:
		return true
	default:
		return false
	}
}

func (c *connection) fail(id string, err error) {
	code := errorCode(err)
	c.s.reject(code)
	c.send(protocol.ErrorMsg{Type: protocol.TypeError, ID: id, Code: code, Message: err.Error()})
}

// send queues a reply. Replies wait for room in the queue; feedback does not.
func (c *connection) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.s.log.Printf("marshal %T: %v", v, err)
		return
	}
	select {
	case c.out <- b:
	case <-c.ctx.Done():
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
