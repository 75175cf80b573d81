package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// Document is one stored corpus entry: a page, section, or whole file.
type Document struct {
	ID        string    `db:"id"`
	Source    string    `db:"source"`
	Title     string    `db:"title"`
	Page      int       `db:"page"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// SearchHit is one ranked retrieval result. The field set matches what the
// tool-output shrink rules preserve.
type SearchHit struct {
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Title   string  `json:"title"`
	Page    int     `json:"page"`
	Content string  `json:"content"`
}

// AddDocument inserts a document, assigning an id when absent.
func (s *Store) AddDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	query := `INSERT INTO documents (id, source, title, page, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, doc.ID, doc.Source, doc.Title, doc.Page, doc.Content, doc.CreatedAt)
	return err
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := sqlscan.Get(ctx, s.db, &count, `SELECT COUNT(*) FROM documents`)
	return count, err
}

// Search runs keyword retrieval: documents matching any query term, ranked
// by how many distinct terms they contain.
func (s *Store) Search(ctx context.Context, query string, k int) ([]SearchHit, error) {
	terms := splitTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 3
	}

	conditions := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, term := range terms {
		conditions[i] = "content LIKE ?"
		args[i] = "%" + term + "%"
	}

	stmt := fmt.Sprintf(
		`SELECT id, source, title, page, content, created_at FROM documents WHERE %s`,
		strings.Join(conditions, " OR "),
	)

	var docs []Document
	if err := sqlscan.Select(ctx, s.db, &docs, stmt, args...); err != nil {
		return nil, fmt.Errorf("corpus search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(docs))
	for _, doc := range docs {
		score := termScore(doc.Content, terms)
		if score == 0 {
			continue
		}
		hits = append(hits, SearchHit{
			Score:   score,
			Source:  doc.Source,
			Title:   doc.Title,
			Page:    doc.Page,
			Content: doc.Content,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

// Retrieve satisfies the orchestrator's Retriever: the top hits formatted
// into a single context block.
func (s *Store) Retrieve(ctx context.Context, query string) (string, error) {
	hits, err := s.Search(ctx, query, 3)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, hit := range hits {
		fmt.Fprintf(&sb, "[%d] %s (%s, p.%d)\n%s\n\n", hit.Rank, hit.Title, hit.Source, hit.Page, snippet(hit.Content, 800))
	}
	return strings.TrimSpace(sb.String()), nil
}

func splitTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	var terms []string
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()`)
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// termScore counts distinct matching terms, weighted by occurrence.
func termScore(content string, terms []string) float64 {
	lower := strings.ToLower(content)
	var score float64
	for _, term := range terms {
		if n := strings.Count(lower, term); n > 0 {
			score += 1 + 0.1*float64(n-1)
		}
	}
	return score
}

func snippet(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars] + "..."
}
