package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ClientName      string     `json:"client_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
	// AsPlayer runs chat commands on behalf of a connected player. Zero means the
	// server console.
	AsPlayer uint64 `json:"as_player,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	Commands        []string `json:"commands"`
}

// COMMAND (client -> server)
type CommandMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Args            []string `json:"args,omitempty"`
}

// RESULT (server -> client), one per COMMAND.
type ResultMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id"`
	OK              bool     `json:"ok"`
	Code            string   `json:"code,omitempty"`
	Lines           []string `json:"lines,omitempty"`
	Suggestion      string   `json:"suggestion,omitempty"`
}

// ERROR (server -> client) for messages that are not valid commands.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
