package crowdmark

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/scoreunlock/scoreunlock/internal/model"
)

// Courses walks the paginated course listing, accumulating every page in
// order. The walk stops once the reported total page count is at most the
// page just fetched.
func (c *Client) Courses(ctx context.Context) ([]model.Course, error) {
	var out []model.Course
	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, fmt.Errorf("list courses: %w after %d pages", ErrTooManyPages, c.maxPages)
		}

		q := url.Values{}
		q.Set("page[number]", strconv.Itoa(page))
		var doc ListDocument
		if err := c.getJSON(ctx, "/api/v2/student/courses", q, &doc); err != nil {
			return nil, fmt.Errorf("list courses page %d: %w", page, err)
		}

		for _, r := range doc.Data {
			var attrs CourseAttributes
			if err := r.DecodeAttributes(&attrs); err != nil {
				return nil, err
			}
			out = append(out, model.Course{ID: r.ID, Name: attrs.Name})
		}

		if doc.Meta.Pagination.TotalPages <= page {
			return out, nil
		}
	}
}

// CourseStatistics returns the platform's per-assessment figures for a course.
func (c *Client) CourseStatistics(ctx context.Context, courseID string) (model.CourseStatistics, error) {
	var stats model.CourseStatistics
	path := "/api/v2/student/courses/" + url.PathEscape(courseID) + "/statistics"
	if err := c.getJSON(ctx, path, nil, &stats); err != nil {
		return model.CourseStatistics{}, fmt.Errorf("get course %s statistics: %w", courseID, err)
	}
	return stats, nil
}

// AllPerfReports fetches the statistics of every course concurrently and
// groups them by course name, then assessment title.
func (c *Client) AllPerfReports(ctx context.Context) (model.PerfReports, error) {
	courses, err := c.Courses(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]model.CourseStatistics, len(courses))
	g, gctx := errgroup.WithContext(ctx)
	for i, course := range courses {
		i, course := i, course
		g.Go(func() error {
			s, err := c.CourseStatistics(gctx, course.ID)
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return groupPerfReports(courses, stats), nil
}

func groupPerfReports(courses []model.Course, stats []model.CourseStatistics) model.PerfReports {
	out := make(model.PerfReports, len(courses))
	for i, course := range courses {
		byTitle := make(map[string]model.PerfReportEntry, len(stats[i].Assessments))
		for _, a := range stats[i].Assessments {
			byTitle[a.Title] = model.PerfReportEntry{MyScore: a.MyScore, AverageScore: a.AverageScore}
		}
		out[course.Name] = byTitle
	}
	return out
}
