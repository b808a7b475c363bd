package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/vibebot/internal/playback"
)

const (
	messageUnknownCommand     = ":warning: **Unknown command.**"
	messageVoiceLookupFailed  = ":warning: **Could not check your voice channel.**"
	messageJoinVCFirst        = ":warning: **Join a voice channel first.**"
	messageMissingPermissions = ":warning: **I need permission to connect and speak in your voice channel.**"
	messageResolutionFailed   = ":warning: **Could not find anything playable for that.**"
	messageNotPlaylist        = ":warning: **That is not a playlist.**"
	messageConnectionFailed   = ":warning: **Could not connect to your voice channel.**"
	messageNoActiveQueue      = ":warning: **Nothing is queued right now.**"
	messageNotPlayingYet      = ":warning: **Still connecting, try again in a moment.**"
	messageQueueFull          = ":warning: **The queue is full.**"
	messageInvalidVolume      = ":warning: **Volume must be between 0 and 200.**"
	messageInvalidSeek        = ":warning: **That position is outside the current track.**"
	messageInvalidPosition    = ":warning: **There is no track at that position.**"
	messageInvalidRepeatMode  = ":warning: **Repeat mode must be off, track or queue.**"
	messageInvalidTwitchLogin = ":warning: **That does not look like a Twitch login.**"
	messageMissingArgument    = ":warning: **Missing argument.**"
	messageGenericFailure     = ":warning: **Something went wrong.**"

	messageStopped      = ":stop_button: **Stopped and cleared the queue.**"
	messagePaused       = ":pause_button: **Paused.**"
	messageResumed      = ":arrow_forward: **Resumed.**"
	messageShuffled     = ":twisted_rightwards_arrows: **Shuffled the queue.**"
	messageQueueEmpty   = ":information_source: **The queue is empty.**"
	messageQueueDone    = ":checkered_flag: **Queue finished, leaving the voice channel.**"
	messageDeployed     = ":white_check_mark: **Slash commands registered.**"
	messageDeployFailed = ":warning: **Slash command registration failed.**"

	messageStartingFormat     = ":arrow_forward: **Starting** %s"
	messageQueuedFormat       = ":inbox_tray: **Queued** %s at position %d"
	messagePlaylistFormat     = ":inbox_tray: **Queued %d tracks** starting at position %d"
	messageSkippedFormat      = ":track_next: **Skipped** %s"
	messageVolumeFormat       = ":loud_sound: **Volume set to %d.**"
	messageSeekFormat         = ":fast_forward: **Jumped to %s.**"
	messageRepeatFormat       = ":repeat: **Repeat mode: %s.**"
	messageRemovedFormat      = ":wastebasket: **Removed** %s"
	messageClearedFormat      = ":wastebasket: **Cleared %d pending tracks.**"
	messageNowPlayingFormat   = ":notes: **Now playing** %s"
	messageConnectingFormat   = ":hourglass: **Connecting to play** %s"
	messageTrackFailedFormat  = ":warning: **Could not play** %s"
	messageSessionFailed      = ":warning: **Lost the voice connection, the queue was cleared.**"
	messageTwitchLinkedFormat = ":link: **Linked Twitch account** `%s`"
	messageTwitchDisabledHint = "-# Twitch live checks are disabled on this bot."

	queueListLimit  = 10
	progressBarSize = 20
)

func trackLabel(t playback.Track) string {
	if t.Duration > 0 {
		return fmt.Sprintf("**%s** `%s`", t.Title, formatDuration(t.Duration))
	}
	return fmt.Sprintf("**%s**", t.Title)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func progressBar(pos, total time.Duration) string {
	if total <= 0 {
		return "`" + formatDuration(pos) + "`"
	}
	filled := int(int64(progressBarSize) * int64(pos) / int64(total))
	if filled > progressBarSize {
		filled = progressBarSize
	}
	bar := strings.Repeat("▬", filled) + "🔘" + strings.Repeat("▬", progressBarSize-filled)
	return fmt.Sprintf("%s `%s / %s`", bar, formatDuration(pos), formatDuration(total))
}

func nowPlayingMessage(snap playback.Snapshot) string {
	track, ok := snap.NowPlaying()
	if !ok {
		if len(snap.Tracks) > 0 {
			return fmt.Sprintf(messageConnectingFormat, trackLabel(snap.Tracks[0]))
		}
		return messageNoActiveQueue
	}
	var b strings.Builder
	fmt.Fprintf(&b, messageNowPlayingFormat, trackLabel(track))
	b.WriteString("\n")
	b.WriteString(progressBar(snap.Position, track.Duration))
	if snap.State == playback.StatePaused {
		b.WriteString(" :pause_button:")
	}
	fmt.Fprintf(&b, "\n-# Requested by <@%s> · volume %d · repeat %s", track.RequesterID, snap.Volume, snap.Repeat)
	return b.String()
}

func queueMessage(snap playback.Snapshot) string {
	if len(snap.Tracks) == 0 {
		return messageQueueEmpty
	}
	var b strings.Builder
	b.WriteString(nowPlayingMessage(snap))
	pending := snap.Tracks[1:]
	if len(pending) == 0 {
		return b.String()
	}
	b.WriteString("\n\n**Up next**")
	for i, t := range pending {
		if i == queueListLimit {
			fmt.Fprintf(&b, "\n-# and %d more", len(pending)-queueListLimit)
			break
		}
		fmt.Fprintf(&b, "\n`%d.` %s", i+2, trackLabel(t))
	}
	return b.String()
}
