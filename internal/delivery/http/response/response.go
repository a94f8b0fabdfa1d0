package response

// RunDigestResponse reports the outcome of a digest run.
type RunDigestResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	RunID        string `json:"run_id,omitempty"`
	ArticleCount int    `json:"article_count,omitempty"`
	ArchiveURL   string `json:"archive_url,omitempty"`
	EmailSent    bool   `json:"email_sent,omitempty"`
	ForumPostURL string `json:"forum_post_url,omitempty"`
}
