package discord

import (
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config contains configuration variables for the Bridge and the Adapter.
type Config struct {
	// Token is the Discord bot token used for authentication.
	Token string `json:"token" yaml:"token" env:"DISCORD_TOKEN"`

	// Intents declares the Gateway Intents the bot requires.
	Intents discordgo.Intent `json:"intents" yaml:"intents" env:"DISCORD_INTENTS"`

	// GuildID limits slash command registration to a single guild.
	// Commands are registered globally when this is empty.
	GuildID string `json:"guild_id" yaml:"guild_id" env:"DISCORD_GUILD_ID"`

	// HelpCommand is the command string that triggers help.
	// When a user sends this exact string, the Adapter converts the input to sarah.HelpInput.
	HelpCommand string `json:"help_command" yaml:"help_command" env:"DISCORD_HELP_COMMAND"`

	// AbortCommand is the command string that triggers context cancellation.
	// When a user sends this exact string, the Adapter converts the input to sarah.AbortInput.
	AbortCommand string `json:"abort_command" yaml:"abort_command" env:"DISCORD_ABORT_COMMAND"`
}

// NewConfig creates and returns a new Config instance with default settings.
// Token is empty and must be set before use.
func NewConfig() *Config {
	return &Config{
		Token:        "",
		Intents:      IntentsFor(true, false, false),
		GuildID:      "",
		HelpCommand:  ".help",
		AbortCommand: ".abort",
	}
}

// IntentsFor returns the non-privileged intents plus the requested privileged ones.
func IntentsFor(messageContent, guildMembers, guildPresences bool) discordgo.Intent {
	intents := discordgo.IntentsAllWithoutPrivileged
	if messageContent {
		intents |= discordgo.IntentsMessageContent
	}
	if guildMembers {
		intents |= discordgo.IntentsGuildMembers
	}
	if guildPresences {
		intents |= discordgo.IntentsGuildPresences
	}
	return intents
}

// LoadConfig reads a YAML file on top of NewConfig's defaults.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := NewConfig()
	if err := yaml.Unmarshal(buf, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// ConfigFromEnv overrides NewConfig's defaults with DISCORD_* environment variables.
func ConfigFromEnv() (*Config, error) {
	config := NewConfig()
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return config, nil
}
