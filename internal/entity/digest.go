package entity

// Email is a fully-formed digest email ready for the mail sender.
type Email struct {
	Recipients []string
	Subject    string
	HTML       string
	FromName   string
	Preview    string
}

// ForumPost is a fully-formed self-post ready for the forum poster.
type ForumPost struct {
	Subreddit string
	Title     string
	Body      string
	FlairID   string
}
