package domain

// TopFollower is a compact summary of one notable follower of a token
// launcher's account.
type TopFollower struct {
	Twitter string `json:"twitter"`
	Name    string `json:"name"`
	Score   string `json:"score,omitempty"`
}

// FollowerStats carries the raw follower figures as the reputation API
// reports them (strings, since the upstream mixes "12.3K"-style values).
type FollowerStats struct {
	Value string `json:"value"`
	Fakes string `json:"fakes"`
}

// TwitterScore is the compact reputation bundle extracted from the
// TweetScout search payload. A zero TwitterScore (via DefaultTwitterScore)
// is a valid value: enrichment never fails the pipeline on a missing score.
type TwitterScore struct {
	Number         int           `json:"number"`
	FakePercent    string        `json:"fake_percent"`
	FollowersCount int           `json:"followers_count"`
	Score          string        `json:"score"`
	TopFollowers   []TopFollower `json:"top_followers"`
	Followers      FollowerStats `json:"followers"`
	Usernames      []string      `json:"usernames"`
	FeedItemsCount int           `json:"feed_items_count"`
}

// DefaultTwitterScore returns the documented zero/empty structure used when
// the reputation source is unavailable.
func DefaultTwitterScore() TwitterScore {
	return TwitterScore{
		FakePercent: "0.00",
		Score:       "0",
		Followers:   FollowerStats{Value: "0", Fakes: "0"},
	}
}

// SocialSnapshot is the slice of social data persisted on a TokenRecord and
// carried inside alert job payloads.
type SocialSnapshot struct {
	Name           string        `json:"name"`
	FollowersCount int           `json:"followers_count"`
	IsBlueVerified bool          `json:"is_blue_verified"`
	Score          string        `json:"score"`
	FakePercent    string        `json:"fake_percent"`
	TopFollowers   []TopFollower `json:"top_followers,omitempty"`
}
