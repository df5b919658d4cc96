package protocol

// HELLO (host -> service)
type HelloMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ServerName      string   `json:"server_name"`
	Worlds          []string `json:"worlds,omitempty"`
}

// WELCOME (service -> host)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Unbreakable     []string       `json:"unbreakable"`
	Worlds          []string       `json:"worlds,omitempty"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	BlockPalette   DigestRef `json:"block_palette"`
	FeedbackDigest string    `json:"feedback_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

type ActorRef struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type BlockRef struct {
	World string `json:"world"`
	Pos   [3]int `json:"pos"`
	Block string `json:"block"`
}

// PLACE / BREAK (host -> service)
type BlockEventMsg struct {
	Type  string   `json:"type"`
	ID    string   `json:"id"`
	Actor ActorRef `json:"actor"`
	Block BlockRef `json:"block"`
}

// EXPLODE / PISTON (host -> service)
type MultiBlockMsg struct {
	Type   string     `json:"type"`
	ID     string     `json:"id"`
	Blocks []BlockRef `json:"blocks"`
}

// REMOVE (host -> service): a block vanished outside the break path.
type RemoveMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	World string `json:"world"`
	Pos   [3]int `json:"pos"`
}

// COMMAND (host -> service)
type CommandMsg struct {
	Type   string    `json:"type"`
	ID     string    `json:"id"`
	Actor  ActorRef  `json:"actor"`
	World  string    `json:"world,omitempty"`
	Args   []string  `json:"args"`
	Target *BlockRef `json:"target,omitempty"`
}

// COMPLETE (host -> service): tab completion request.
type CompleteMsg struct {
	Type  string   `json:"type"`
	ID    string   `json:"id"`
	Actor ActorRef `json:"actor"`
	Args  []string `json:"args"`
}

// VERDICT (service -> host)
type VerdictMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Allow    bool   `json:"allow"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
	HitsLeft uint   `json:"hits_left,omitempty"`
	// Survivors are the blocks an explosion or piston must leave in place.
	Survivors []BlockRef `json:"survivors,omitempty"`
	Destroyed []BlockRef `json:"destroyed,omitempty"`
}

// REPLY (service -> host): command output or completions.
type ReplyMsg struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Lines       []string `json:"lines,omitempty"`
	Completions []string `json:"completions,omitempty"`
}

// FEEDBACK (service -> host): pushed when a break is denied.
type FeedbackMsg struct {
	Type     string `json:"type"`
	Actor    string `json:"actor"`
	World    string `json:"world"`
	Pos      [3]int `json:"pos"`
	Message  string `json:"message"`
	Sound    string `json:"sound,omitempty"`
	Particle string `json:"particle,omitempty"`
	Count    int    `json:"count,omitempty"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
