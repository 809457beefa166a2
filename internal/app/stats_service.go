package app

import (
	"context"
	"time"

	"microblog/internal/domain"
)

// StatsService encapsulates activity chart data retrieval use cases.
type StatsService struct {
	posts domain.PostRepository
}

// NewStatsService creates a StatsService backed by the given repository.
func NewStatsService(posts domain.PostRepository) *StatsService {
	return &StatsService{posts: posts}
}

// DayPoint is a single data point returned by GetDaily.
type DayPoint struct {
	Day   string `json:"day"`
	Posts int    `json:"posts"`
	Likes int    `json:"likes"`
}

// GetDaily returns per-day posting activity for the last days days. Likes are
// tallied against the day the liked post was created.
func (s *StatsService) GetDaily(ctx context.Context, days int) ([]DayPoint, error) {
	if days > 366 {
		days = 366
	}

	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct{ posts, likes int }
	byDay := make(map[string]tally)
	for _, p := range posts {
		day := p.CreatedAt.In(time.Local).Format("2006-01-02")
		t := byDay[day]
		t.posts++
		t.likes += p.Likes
		byDay[day] = t
	}

	today := time.Now().In(time.Local)
	points := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		t := byDay[day]
		points = append(points, DayPoint{Day: day, Posts: t.posts, Likes: t.likes})
	}
	return points, nil
}
