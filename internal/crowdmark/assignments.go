package crowdmark

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// AssignmentIDs lists the assignment identifiers visible to the current user.
// The endpoint is not paginated.
func (c *Client) AssignmentIDs(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Add("fields[exam-masters][]", "type")
	q.Add("fields[exam-masters][]", "title")

	var doc ListDocument
	if err := c.getJSON(ctx, "/api/v2/student/assignments", q, &doc); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	ids := make([]string, 0, len(doc.Data))
	for _, r := range doc.Data {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// AssignmentData returns the full results document for one assignment.
func (c *Client) AssignmentData(ctx context.Context, id string) (Document, error) {
	var doc Document
	if err := c.getJSON(ctx, "/api/v1/student/results/"+url.PathEscape(id), nil, &doc); err != nil {
		return Document{}, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return doc, nil
}

// AllAssignmentData fetches every document concurrently. The result keeps
// the order of ids. The first failure cancels the rest and is returned.
func (c *Client) AllAssignmentData(ctx context.Context, ids []string) ([]Document, error) {
	docs := make([]Document, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			doc, err := c.AssignmentData(gctx, id)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Assignments lists the ids and then fetches every document.
func (c *Client) Assignments(ctx context.Context) ([]Document, error) {
	ids, err := c.AssignmentIDs(ctx)
	if err != nil {
		return nil, err
	}
	return c.AllAssignmentData(ctx, ids)
}
