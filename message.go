package discord

import (
	"bytes"
	"mime"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// Component is a button placed on a message.
type Component struct {
	Label   string `json:"label" yaml:"label"`
	ID      string `json:"id" yaml:"id"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// ComponentRow is one row of buttons. Discord renders at most five buttons per row.
type ComponentRow struct {
	Components []Component `json:"components" yaml:"components"`
}

// Message is both the text payload delivered with a MessageEvent and the payload of every outbound call.
type Message struct {
	// ChannelID is the destination channel. It is ignored for interaction replies.
	ChannelID string `json:"channel_id" yaml:"channel_id"`

	Content string `json:"content" yaml:"content"`

	// FilePath is a local file to attach under its base name.
	// The message is still sent without the attachment when the file cannot be read.
	FilePath string `json:"file_path" yaml:"file_path"`

	ComponentRows []ComponentRow `json:"component_rows" yaml:"component_rows"`

	// Ephemeral hides an interaction reply from everyone but the issuing user.
	Ephemeral bool `json:"ephemeral" yaml:"ephemeral"`
}

func (m *Message) toMessageSend() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    m.Content,
		Components: m.components(),
		Files:      m.files(),
		Flags:      m.flags(),
	}
}

func (m *Message) toResponseData() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    m.Content,
		Components: m.components(),
		Files:      m.files(),
		Flags:      m.flags(),
	}
}

func (m *Message) components() []discordgo.MessageComponent {
	if len(m.ComponentRows) == 0 {
		return nil
	}

	rows := make([]discordgo.MessageComponent, 0, len(m.ComponentRows))
	for _, row := range m.ComponentRows {
		buttons := make([]discordgo.MessageComponent, 0, len(row.Components))
		for _, c := range row.Components {
			buttons = append(buttons, discordgo.Button{
				Label:    c.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: c.ID,
				Disabled: !c.Enabled,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func (m *Message) files() []*discordgo.File {
	if m.FilePath == "" {
		return nil
	}

	buf, err := os.ReadFile(m.FilePath)
	if err != nil {
		logger.Warnf("Failed to read attachment %s, sending without it: %+v", m.FilePath, err)
		return nil
	}

	name := filepath.Base(m.FilePath)
	return []*discordgo.File{
		{
			Name:        name,
			ContentType: mime.TypeByExtension(filepath.Ext(name)),
			Reader:      bytes.NewReader(buf),
		},
	}
}

func (m *Message) flags() discordgo.MessageFlags {
	if m.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
