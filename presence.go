package discord

import "github.com/bwmarrin/discordgo"

// PresenceStatus is the online status shown for the bot.
type PresenceStatus int

const (
	// PresenceOffline shows the bot as offline.
	PresenceOffline PresenceStatus = iota
	// PresenceOnline shows the bot as online.
	PresenceOnline
	// PresenceDoNotDisturb shows the bot as do-not-disturb.
	PresenceDoNotDisturb
	// PresenceIdle shows the bot as idle.
	PresenceIdle
	// PresenceInvisible hides the bot while keeping it connected.
	PresenceInvisible
)

// ActivityType selects the verb shown in front of Status.Text.
type ActivityType int

const (
	// ActivityGame renders as "Playing ...".
	ActivityGame ActivityType = iota
	// ActivityStreaming renders as "Streaming ...".
	ActivityStreaming
	// ActivityListening renders as "Listening to ...".
	ActivityListening
	// ActivityWatching renders as "Watching ...".
	ActivityWatching
	// ActivityCustom shows Status.Text as a custom status.
	ActivityCustom
	// ActivityCompeting renders as "Competing in ...".
	ActivityCompeting
)

// Status is the bot's presence.
type Status struct {
	Type     PresenceStatus `json:"type" yaml:"type"`
	Activity ActivityType   `json:"activity" yaml:"activity"`
	Text     string         `json:"text" yaml:"text"`
}

func (s PresenceStatus) toDiscord() discordgo.Status {
	switch s {
	case PresenceOnline:
		return discordgo.StatusOnline
	case PresenceDoNotDisturb:
		return discordgo.StatusDoNotDisturb
	case PresenceIdle:
		return discordgo.StatusIdle
	case PresenceInvisible:
		return discordgo.StatusInvisible
	default:
		return discordgo.StatusOffline
	}
}

func (a ActivityType) toDiscord() discordgo.ActivityType {
	switch a {
	case ActivityStreaming:
		return discordgo.ActivityTypeStreaming
	case ActivityListening:
		return discordgo.ActivityTypeListening
	case ActivityWatching:
		return discordgo.ActivityTypeWatching
	case ActivityCustom:
		return discordgo.ActivityTypeCustom
	case ActivityCompeting:
		return discordgo.ActivityTypeCompeting
	default:
		return discordgo.ActivityTypeGame
	}
}

func (s Status) toUpdateStatusData() discordgo.UpdateStatusData {
	activity := &discordgo.Activity{
		Name: s.Text,
		Type: s.Activity.toDiscord(),
	}
	if s.Activity == ActivityCustom {
		// Custom statuses display State; Name is required but not shown.
		activity.Name = "Custom Status"
		activity.State = s.Text
	}

	return discordgo.UpdateStatusData{
		Status:     string(s.Type.toDiscord()),
		Activities: []*discordgo.Activity{activity},
	}
}
