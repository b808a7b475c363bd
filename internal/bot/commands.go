package bot

import "github.com/foxseedlab/vibebot/internal/discord"

const (
	commandPlay       = "play"
	commandPlaylist   = "playlist"
	commandSkip       = "skip"
	commandStop       = "stop"
	commandPause      = "pause"
	commandResume     = "resume"
	commandVolume     = "volume"
	commandSeek       = "seek"
	commandRepeat     = "repeat"
	commandRemove     = "remove"
	commandClear      = "clear"
	commandShuffle    = "shuffle"
	commandQueue      = "queue"
	commandNowPlaying = "nowplaying"
	commandTwitchLink = "twitch-link"
	commandDeploy     = "deploy"

	optionQuery    = "query"
	optionURL      = "url"
	optionLevel    = "level"
	optionSeconds  = "seconds"
	optionMode     = "mode"
	optionPosition = "position"
	optionLogin    = "login"
)

// prefixAliases maps short prefix command names to their slash counterparts.
var prefixAliases = map[string]string{
	"p":   commandPlay,
	"pl":  commandPlaylist,
	"s":   commandSkip,
	"np":  commandNowPlaying,
	"q":   commandQueue,
	"vol": commandVolume,
}

// SlashCommandDefinitions lists every slash command the bot registers in a guild.
func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        commandPlay,
			Description: "Play a song from a search query or URL.",
			Options: []discord.SlashCommandOption{
				{Name: optionQuery, Description: "Search words or a URL.", Type: discord.CommandOptionString, Required: true},
			},
		},
		{
			Name:        commandPlaylist,
			Description: "Queue every track of a playlist.",
			Options: []discord.SlashCommandOption{
				{Name: optionURL, Description: "Playlist URL.", Type: discord.CommandOptionString, Required: true},
			},
		},
		{Name: commandSkip, Description: "Skip the current track."},
		{Name: commandStop, Description: "Stop playback, clear the queue and leave."},
		{Name: commandPause, Description: "Pause the current track."},
		{Name: commandResume, Description: "Resume the paused track."},
		{
			Name:        commandVolume,
			Description: "Set the playback volume.",
			Options: []discord.SlashCommandOption{
				{Name: optionLevel, Description: "Volume from 0 to 200.", Type: discord.CommandOptionInteger, Required: true},
			},
		},
		{
			Name:        commandSeek,
			Description: "Jump to a position in the current track.",
			Options: []discord.SlashCommandOption{
				{Name: optionSeconds, Description: "Position in seconds.", Type: discord.CommandOptionInteger, Required: true},
			},
		},
		{
			Name:        commandRepeat,
			Description: "Set the repeat mode.",
			Options: []discord.SlashCommandOption{
				{Name: optionMode, Description: "Repeat mode.", Type: discord.CommandOptionString, Required: true, Choices: []string{"off", "track", "queue"}},
			},
		},
		{
			Name:        commandRemove,
			Description: "Remove a pending track from the queue.",
			Options: []discord.SlashCommandOption{
				{Name: optionPosition, Description: "Queue position as shown by /queue.", Type: discord.CommandOptionInteger, Required: true},
			},
		},
		{Name: commandClear, Description: "Remove every pending track."},
		{Name: commandShuffle, Description: "Shuffle the pending tracks."},
		{Name: commandQueue, Description: "Show the queue."},
		{Name: commandNowPlaying, Description: "Show the current track."},
		{
			Name:        commandTwitchLink,
			Description: "Link your Twitch account for live detection.",
			Options: []discord.SlashCommandOption{
				{Name: optionLogin, Description: "Your Twitch login.", Type: discord.CommandOptionString, Required: true},
			},
		},
	}
}
