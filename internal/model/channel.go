// Package model defines the domain types shared by the stores, the event
// bus, the trigger engine, and the RPC surface.
package model

import (
	"fmt"
	"regexp"
)

// ChannelType distinguishes the policy class of a channel. Storage shape is
// identical for all three; only upstream policy differs.
type ChannelType string

const (
	ChannelPublic  ChannelType = "public"
	ChannelPrivate ChannelType = "private"
	ChannelDM      ChannelType = "dm"
)

// ValidChannelType reports whether t is a recognized channel type.
func ValidChannelType(t ChannelType) bool {
	switch t {
	case ChannelPublic, ChannelPrivate, ChannelDM:
		return true
	}
	return false
}

// MemberRole is the role of a participant within a channel.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Channel is an addressable collaboration surface. The name is globally
// unique and case-sensitive; the id is immutable for the channel's lifetime.
type Channel struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        ChannelType     `json:"type"`
	Description string          `json:"description,omitempty"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   int64           `json:"createdAt"`
	Members     []ChannelMember `json:"members,omitempty"`
}

// ChannelMember is the edge between a channel and a participant. The
// participant may be an agent id or a human id; the store does not care.
type ChannelMember struct {
	ChannelID string     `json:"channelId"`
	MemberID  string     `json:"memberId"`
	Role      MemberRole `json:"role"`
	JoinedAt  int64      `json:"joinedAt"`
}

// ChannelMessage is an immutable append record. Messages are never mutated
// or deleted individually; they go away only when the owning channel is
// deleted. ThreadID is empty for root-level messages.
type ChannelMessage struct {
	ID        string         `json:"id"`
	ChannelID string         `json:"channelId"`
	SenderID  string         `json:"senderId"`
	Text      string         `json:"text"`
	Timestamp int64          `json:"timestamp"`
	ThreadID  string         `json:"threadId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChannelPreview is the list-view projection of a channel: the channel row
// plus its member count and most recent message, if any.
type ChannelPreview struct {
	Channel
	MemberCount int             `json:"memberCount"`
	LastMessage *ChannelMessage `json:"lastMessage,omitempty"`
}

var channelNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// MaxChannelNameLen bounds channel names; anything longer is caller garbage.
const MaxChannelNameLen = 80

// ValidateChannelName checks that a channel name is a non-empty slug.
func ValidateChannelName(name string) error {
	if name == "" {
		return fmt.Errorf("channel name is required")
	}
	if len(name) > MaxChannelNameLen {
		return fmt.Errorf("channel name exceeds maximum length of %d characters", MaxChannelNameLen)
	}
	if !channelNameRe.MatchString(name) {
		return fmt.Errorf("channel name %q must be a slug (letters, digits, dot, dash, underscore)", name)
	}
	return nil
}
