package domain

type Agent struct {
	ID       string   `json:"id" yaml:"id" toml:"id"`
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Identity Identity `json:"identity" yaml:"identity" toml:"identity"`
}

type Identity struct {
	Emoji string `json:"emoji" yaml:"emoji" toml:"emoji"`
	Name  string `json:"name" yaml:"name" toml:"name"`
	Theme string `json:"theme" yaml:"theme" toml:"theme"`
}

type Model struct {
	ID             string `json:"id" yaml:"id" toml:"id"`
	Name           string `json:"name" yaml:"name" toml:"name"`
	SupportsVision bool   `json:"supportsVision,omitempty" yaml:"supportsVision,omitempty" toml:"supportsVision,omitempty"`
}

// DefaultAgents is the built-in agent roster.
func DefaultAgents() []Agent {
	return []Agent{
		{ID: "main", Name: "Kai", Identity: Identity{Emoji: "⚡", Name: "Kai", Theme: "Reliable, Sharp, Proactive, Efficient."}},
		{ID: "rich", Name: "Rich", Identity: Identity{Emoji: "💰", Name: "Rich", Theme: "Professional, Analytical, Prudent, Strategic."}},
		{ID: "code", Name: "code", Identity: Identity{Emoji: "💻", Name: "Code", Theme: "Technical, Precise, Efficient, Problem-solving."}},
		{ID: "skill-manager", Name: "Skill Manager", Identity: Identity{Emoji: "🛡️", Name: "Skill Manager", Theme: "Professional, Helpful, Systematic, Security-focused."}},
		{ID: "nexchip", Name: "nexchip", Identity: Identity{Emoji: "🔬", Name: "nexchip", Theme: "Expert in Semiconductor Manufacturing & AI Agent Development"}},
		{ID: "chef", Name: "Chef", Identity: Identity{Emoji: "🍳", Name: "Chef", Theme: "Careful, warm and organized kitchen helper"}},
		{ID: "travel", Name: "travel", Identity: Identity{Emoji: "✈️", Name: "Travel", Theme: "Friendly, thorough overseas travel helper"}},
		{ID: "ip", Name: "Patent Review", Identity: Identity{Emoji: "📋", Name: "Patent Review", Theme: "Professional, rigorous, constructive"}},
		{ID: "startup", Name: "startup", Identity: Identity{Emoji: "🚀", Name: "Startup", Theme: "Proactive, pragmatic, creative"}},
	}
}

// DefaultModels is the built-in model list.
func DefaultModels() []Model {
	return []Model{
		{ID: "minimax-portal/MiniMax-M2.1", Name: "MiniMax M2.1"},
		{ID: "minimax-portal/MiniMax-M2.5", Name: "MiniMax M2.5 (vision)", SupportsVision: true},
		{ID: "minimax-portal/MiniMax-M2.1-lightning", Name: "MiniMax M2.1 Lightning"},
		{ID: "zai/glm-4.7", Name: "GLM-4.7"},
		{ID: "zai/glm-5", Name: "GLM-5"},
		{ID: "google/gemini-3-flash-preview", Name: "Gemini Flash", SupportsVision: true},
	}
}
