package config

// ProvidersConfig holds the process-wide upstream endpoints and credentials
// the router resolves targets from. API keys left empty in config.yaml fall
// back to the conventional environment variables.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Google    ProviderConfig `mapstructure:"google"`
	XAI       ProviderConfig `mapstructure:"xai"`
	Fallback  ProviderConfig `mapstructure:"fallback"`
}

type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

func setProviderDefaults() {
	p := &globalConfig.Providers

	if p.OpenAI.BaseURL == "" {
		p.OpenAI.BaseURL = "https://api.openai.com"
	}
	if p.Anthropic.BaseURL == "" {
		p.Anthropic.BaseURL = "https://api.anthropic.com"
	}
	if p.Google.BaseURL == "" {
		p.Google.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if p.XAI.BaseURL == "" {
		p.XAI.BaseURL = "https://api.x.ai"
	}
	if p.Fallback.BaseURL == "" {
		p.Fallback.BaseURL = resolveEnv("", "TARGET_LLM_URL")
	}
	if p.Fallback.BaseURL == "" {
		p.Fallback.BaseURL = "http://localhost:11434/v1/chat/completions"
	}

	p.OpenAI.APIKey = resolveEnv(p.OpenAI.APIKey, "OPENAI_API_KEY")
	p.Anthropic.APIKey = resolveEnv(p.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	p.Google.APIKey = resolveEnv(p.Google.APIKey, "GEMINI_API_KEY")
	p.XAI.APIKey = resolveEnv(p.XAI.APIKey, "XAI_API_KEY")
	p.Fallback.APIKey = resolveEnv(p.Fallback.APIKey, "FALLBACK_API_KEY")
}
