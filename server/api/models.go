package api

// note that these are *not* the DAO models; those are distinct and closer to
// the DB format they are in. Rather these are the models that are received from
// and sent to the client.

type RewriteRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

type RewriteResponse struct {
	Result string `json:"result"`
}

type CheckResponse struct {
	Valid bool `json:"valid"`
}

// SyntaxErrorModel locates a syntax error. Line and Position are 1-based;
// Position counts characters.
type SyntaxErrorModel struct {
	Filename   string `json:"filename"`
	Line       int    `json:"line"`
	Position   int    `json:"position"`
	Message    string `json:"message"`
	SourceLine string `json:"source_line"`
	Traceback  string `json:"traceback"`
}

type SessionRequest struct {
	PS1 string `json:"ps1,omitempty"`
	PS2 string `json:"ps2,omitempty"`
}

type SessionCreatedResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type SessionModel struct {
	URI     string   `json:"uri"`
	ID      string   `json:"id"`
	Created string   `json:"created"`
	Updated string   `json:"updated"`
	Lines   int      `json:"lines"`
	PS1     string   `json:"ps1"`
	PS2     string   `json:"ps2"`
	Context []string `json:"context"`
	Pending bool     `json:"pending"`
}

type LineRequest struct {
	Line   string `json:"line"`
	Prompt string `json:"prompt,omitempty"`
}

type LineResponse struct {
	Line    string `json:"line"`
	Pending bool   `json:"pending"`
}

type InfoModel struct {
	Version struct {
		Server    string `json:"server"`
		PastPrint string `json:"pastprint"`
	} `json:"version"`
}
