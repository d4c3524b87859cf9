package models

// ContentStats — сводные счётчики по контенту для административной панели.
type ContentStats struct {
	TotalUsers        int `db:"total_users" json:"total_users"`
	ActiveUsers       int `db:"active_users" json:"active_users"`
	TotalArticles     int `db:"total_articles" json:"total_articles"`
	PublishedArticles int `db:"published_articles" json:"published_articles"`
	DraftArticles     int `db:"draft_articles" json:"draft_articles"`
	TotalCollections  int `db:"total_collections" json:"total_collections"`
	TotalCategories   int `db:"total_categories" json:"total_categories"`
	TotalTags         int `db:"total_tags" json:"total_tags"`
}
