package domain

// Candidate is an influencer profile as seen by the match scorer. Records
// coming out of the directory may be sparse; missing strings stay empty and
// missing counts stay zero, and a candidate is never dropped for that alone.
type Candidate struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	FullName string           `json:"full_name"`
	Channels []ChannelSummary `json:"channels"`
}

// ChannelSummary is a linked channel as stored in the directory. View and
// video counts feed the aggregate stats on a match result and default to
// zero when statistics have not been synced for the channel yet.
type ChannelSummary struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Niche           string `json:"niche"`
	SubscriberCount int64  `json:"subscriber_count"`
	ViewCount       int64  `json:"view_count"`
	VideoCount      int64  `json:"video_count"`
}

// DisplayName returns the username if set, otherwise the full name
func (c *Candidate) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Username != "" {
		return c.Username
	}
	return c.FullName
}

// HasChannels returns true if the candidate has at least one linked channel
func (c *Candidate) HasChannels() bool {
	return c != nil && len(c.Channels) > 0
}
