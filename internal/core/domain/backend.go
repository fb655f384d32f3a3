package domain

import (
	"strings"
	"time"
)

// BackendFamily is the closed set of generation backend families.
type BackendFamily int

const (
	FamilyUnknown BackendFamily = iota
	FamilyHosted
	FamilyLocal
)

func (f BackendFamily) String() string {
	switch f {
	case FamilyHosted:
		return "Gemini"
	case FamilyLocal:
		return "Ollama"
	default:
		return "unknown"
	}
}

// ParseBackendFamily maps user-facing backend names onto a family.
func ParseBackendFamily(raw string) (BackendFamily, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "gemini pro", "hosted":
		return FamilyHosted, true
	case "ollama", "local":
		return FamilyLocal, true
	default:
		return FamilyUnknown, false
	}
}

type ConnectionMode string

const (
	ConnectionExternal          ConnectionMode = "external"
	ConnectionContainerInternal ConnectionMode = "container-internal"
	ConnectionLocal             ConnectionMode = "local"
)

// ConnectionState describes one connectivity check of the local runtime.
type ConnectionState struct {
	Host          string         `json:"host"`
	Mode          ConnectionMode `json:"connection_type"`
	Containerized bool           `json:"docker"`
	Reachable     bool           `json:"connected"`
	Models        []string       `json:"models"`
}

type AnswerRequest struct {
	Question     string
	Categories   []string
	Backend      string
	Model        string
	HostOverride string
}

type GenerationRequest struct {
	Question     string
	Family       BackendFamily
	Model        string
	HostOverride string
	Context      RetrievalResult
}

// GenerationResult carries the answer and whether grounding passages were
// placed into the prompt. Failed marks a caught provider failure whose Answer
// is the user-facing failure message.
type GenerationResult struct {
	Answer   string        `json:"response"`
	Grounded bool          `json:"grounded"`
	Family   BackendFamily `json:"-"`
	Model    string        `json:"model_name"`
	Failed   bool          `json:"failed"`
}

type ModelCatalog struct {
	Local            ConnectionState `json:"local"`
	HostedConfigured bool            `json:"hosted_configured"`
	HostedModels     []string        `json:"hosted_models"`
}

type Interaction struct {
	ID            string
	Backend       string
	Model         string
	Question      string
	Answer        string
	Grounded      bool
	Failed        bool
	Containerized bool
	CreatedAt     time.Time
}
