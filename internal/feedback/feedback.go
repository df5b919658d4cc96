package feedback

import (
	"log"

	"github.com/google/uuid"

	"voxelguard.ai/internal/catalogs"
	"voxelguard.ai/internal/config"
	"voxelguard.ai/internal/guard"
)

// Notice is what the host plays back to an actor whose break was denied.
type Notice struct {
	Actor     uuid.UUID
	ActorName string
	World     string
	Pos       [3]int
	Message   string
	Sound     string
	Particle  string
	Count     int
}

// Renderer turns a denied break into a Notice. Sound and particle names are
// checked against the catalog once; an unknown name is dropped for good.
type Renderer struct {
	message  string
	sound    string
	particle string
	count    int
}

func NewRenderer(msg config.Messages, fb config.Feedback, cat catalogs.FeedbackCatalog, logger *log.Logger) Renderer {
	r := Renderer{message: msg.BreakDeny, count: fb.ParticleCount}
	if fb.Sound != "" {
		if id, err := cat.Sound(fb.Sound); err == nil {
			r.sound = id
		} else if logger != nil {
			logger.Printf("feedback: %v; sound disabled", err)
		}
	}
	if fb.Particle != "" {
		if id, err := cat.Particle(fb.Particle); err == nil {
			r.particle = id
		} else if logger != nil {
			logger.Printf("feedback: %v; particle disabled", err)
		}
	}
	if r.particle == "" {
		r.count = 0
	}
	return r
}

func (r Renderer) Render(a guard.Actor, loc guard.Location) Notice {
	return Notice{
		Actor:     a.ID,
		ActorName: a.Name,
		World:     loc.World,
		Pos:       loc.Pos(),
		Message:   r.message,
		Sound:     r.sound,
		Particle:  r.particle,
		Count:     r.count,
	}
}

// Sink implements guard.FeedbackSink. Notices go to whichever target is
// installed at the time of the denial; with no target they are dropped.
type Sink struct {
	r      Renderer
	target func(Notice) bool

	// OnDrop, if set, is called for every notice that could not be delivered.
	OnDrop func(Notice)
}

func NewSink(r Renderer) *Sink {
	return &Sink{r: r}
}

// SetTarget installs fn as the delivery target and returns a func that puts
// the previous target back. fn reports false when it had to drop the notice.
func (s *Sink) SetTarget(fn func(Notice) bool) (restore func()) {
	prev := s.target
	s.target = fn
	return func() { s.target = prev }
}

func (s *Sink) NotifyDenied(a guard.Actor, loc guard.Location) {
	n := s.r.Render(a, loc)
	if s.target != nil && s.target(n) {
		return
	}
	if s.OnDrop != nil {
		s.OnDrop(n)
	}
}
