package notify

// ChannelName identifies a notification channel.
type ChannelName string

// Known channels.
const (
	// ChannelPush is the chat-push API (per-recipient quota, low reliability).
	ChannelPush ChannelName = "push"

	// ChannelWebhook is the group-chat webhook broadcast.
	ChannelWebhook ChannelName = "webhook"

	// ChannelMQTT is the wall-panel MQTT broadcast.
	ChannelMQTT ChannelName = "mqtt"
)

// ChannelSet is an ordered set of target channels.
// Order matters: the first entry is the primary and drives the fallback
// rules. Replaces ad hoc string flags like "push"/"webhook"/"both".
type ChannelSet []ChannelName

// NewChannelSet builds a channel set, dropping duplicates while preserving
// first-seen order.
func NewChannelSet(names ...ChannelName) ChannelSet {
	seen := make(map[ChannelName]struct{}, len(names))
	set := make(ChannelSet, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		set = append(set, n)
	}
	return set
}

// Contains reports whether the set includes a channel.
func (s ChannelSet) Contains(name ChannelName) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

// Primary returns the first channel in the set, or "" when empty.
func (s ChannelSet) Primary() ChannelName {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// FragmentType distinguishes message fragment kinds.
type FragmentType string

// Fragment kinds.
const (
	// FragmentText is a plain text message part.
	FragmentText FragmentType = "text"

	// FragmentAttachment is a binary payload (e.g. a snapshot image).
	FragmentAttachment FragmentType = "attachment"
)

// Fragment is one ordered part of a notification message.
type Fragment struct {
	Type FragmentType

	// Text is the content for text fragments.
	Text string

	// Binary and Filename describe attachment fragments.
	Binary   []byte
	Filename string
}

// TextFragment builds a text fragment.
func TextFragment(text string) Fragment {
	return Fragment{Type: FragmentText, Text: text}
}

// AttachmentFragment builds an attachment fragment.
func AttachmentFragment(filename string, data []byte) Fragment {
	return Fragment{Type: FragmentAttachment, Filename: filename, Binary: data}
}

// Request describes one notification: what to send and where.
// Immutable once constructed; the router never mutates it.
type Request struct {
	// Recipient is the push-channel recipient identifier.
	Recipient string

	// Fragments is the ordered message content.
	Fragments []Fragment

	// Channels is the ordered target channel set.
	Channels ChannelSet

	// Bucket selects a sub-destination within a channel (e.g. "alerts",
	// "errors"). Resolved to a transport endpoint by configuration.
	Bucket string
}

// Text concatenates the request's text fragments in order.
func (r Request) Text() string {
	var out string
	for _, f := range r.Fragments {
		if f.Type == FragmentText {
			out += f.Text
		}
	}
	return out
}

// HasAttachments reports whether any fragment carries binary data.
func (r Request) HasAttachments() bool {
	for _, f := range r.Fragments {
		if f.Type == FragmentAttachment {
			return true
		}
	}
	return false
}
