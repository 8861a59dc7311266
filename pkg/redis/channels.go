package redis

import "strings"

// ChannelPrefix namespaces every dashboard channel and stream key.
const ChannelPrefix = "hydrodash"

// EventPattern matches the channels of every session event.
const EventPattern = ChannelPrefix + ":*:*"

// EventChannel returns the Pub/Sub channel for a session event, "hydrodash:<session>:<event>".
func EventChannel(sessionID, event string) string {
	return ChannelPrefix + ":" + sessionID + ":" + event
}

// HistoryStream returns the stream key holding a session's recent events.
func HistoryStream(sessionID string) string {
	return ChannelPrefix + ":history:" + sessionID
}

// ParseEventChannel splits a channel built by EventChannel. ok is false for foreign channels.
func ParseEventChannel(channel string) (sessionID, event string, ok bool) {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != ChannelPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
